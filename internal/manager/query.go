package manager

import "github.com/danmuck/actormgr/internal/actors"

// Query is one actor request. The variant set is closed: GetForID,
// GetOrCreateForTags and Create.
type Query interface {
	Kind() string
	isQuery()
}

// GetForID fetches one actor by its platform id.
type GetForID struct {
	ActorID string
}

// GetOrCreateForTags returns the eligible actor matching Tags, creating one
// from Create when none exists and Create is set.
type GetOrCreateForTags struct {
	Tags   actors.Tags
	Create *actors.CreateRequest
}

// Create always creates a new actor.
type Create struct {
	Request actors.CreateRequest
}

const (
	KindGetForID           = "get_for_id"
	KindGetOrCreateForTags = "get_or_create_for_tags"
	KindCreate             = "create"
	kindUnknown            = "unknown"
)

func (GetForID) Kind() string           { return KindGetForID }
func (GetOrCreateForTags) Kind() string { return KindGetOrCreateForTags }
func (Create) Kind() string             { return KindCreate }

func (GetForID) isQuery()           {}
func (GetOrCreateForTags) isQuery() {}
func (Create) isQuery()             {}

// kindOf tolerates nil and typed-nil queries.
func kindOf(q Query) string {
	switch v := q.(type) {
	case GetForID, GetOrCreateForTags, Create:
		return v.Kind()
	case *GetForID:
		if v != nil {
			return KindGetForID
		}
	case *GetOrCreateForTags:
		if v != nil {
			return KindGetOrCreateForTags
		}
	case *Create:
		if v != nil {
			return KindCreate
		}
	}
	return kindUnknown
}
