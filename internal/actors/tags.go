package actors

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	TagAccess  = "access"
	TagName    = "name"
	TagCurrent = "current"

	AccessPublic  = "public"
	AccessPrivate = "private"
)

// Tags is an unordered set of string attributes attached to actors and builds.
type Tags map[string]string

// Clone returns an independent copy; a nil receiver yields an empty set.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	return out
}

// With returns a copy of t with key set to value.
func (t Tags) With(key, value string) Tags {
	out := t.Clone()
	out[key] = value
	return out
}

// Public returns a copy of t with access forced to public.
func (t Tags) Public() Tags {
	return t.With(TagAccess, AccessPublic)
}

// IsPublic reports whether the access tag is exactly "public".
func (t Tags) IsPublic() bool {
	return t[TagAccess] == AccessPublic
}

// Encode serializes the set as one JSON object for the tags_json query
// parameter. encoding/json sorts map keys, so equal sets encode identically.
func (t Tags) Encode() (string, error) {
	if t == nil {
		t = Tags{}
	}
	raw, err := json.Marshal(map[string]string(t))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// String renders tags as sorted k=v pairs for logs.
func (t Tags) String() string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+t[k])
	}
	return strings.Join(parts, ",")
}
