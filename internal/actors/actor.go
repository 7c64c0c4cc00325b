package actors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRecord = errors.New("actors: invalid record")

// Port is one declared network port. Hostname and Port stay unset until the
// platform assigns them.
type Port struct {
	Protocol     string   `json:"protocol,omitempty"`
	InternalPort *int     `json:"internalPort,omitempty"`
	Hostname     *string  `json:"hostname,omitempty"`
	Port         *int     `json:"port,omitempty"`
	Path         *string  `json:"path,omitempty"`
	Routing      *Routing `json:"routing,omitempty"`
}

// Ready reports whether the platform has assigned both hostname and port.
func (p Port) Ready() bool {
	return p.Hostname != nil && *p.Hostname != "" && p.Port != nil && *p.Port > 0
}

// Routing selects how the platform exposes a port. An empty Guard routes
// through the platform's default gateway.
type Routing struct {
	Guard *GuardRouting `json:"guard,omitempty"`
	Host  *HostRouting  `json:"host,omitempty"`
}

type GuardRouting struct{}

type HostRouting struct{}

// Network holds the declared ports of an actor keyed by port name.
type Network struct {
	Mode  string          `json:"mode,omitempty"`
	Ports map[string]Port `json:"ports,omitempty"`
}

// Runtime names the build an actor instantiates.
type Runtime struct {
	Build string `json:"build,omitempty"`
}

// Actor is one actor record as reported by the platform.
type Actor struct {
	ID          string  `json:"id"`
	Region      string  `json:"region,omitempty"`
	Tags        Tags    `json:"tags"`
	Runtime     Runtime `json:"runtime,omitempty"`
	Network     Network `json:"network"`
	CreatedAt   int64   `json:"createdAt,omitempty"`
	StartedAt   *int64  `json:"startedAt,omitempty"`
	DestroyedAt *int64  `json:"destroyedAt,omitempty"`

	raw json.RawMessage
}

type actorFields Actor

// UnmarshalJSON decodes the typed fields and keeps the original bytes so the
// record can be handed back to callers exactly as the platform sent it.
func (a *Actor) UnmarshalJSON(data []byte) error {
	var f actorFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Actor(f)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the platform bytes when the record was decoded from the
// platform, otherwise the typed fields.
func (a Actor) MarshalJSON() ([]byte, error) {
	if len(a.raw) > 0 {
		return a.raw, nil
	}
	f := actorFields(a)
	f.raw = nil
	return json.Marshal(f)
}

// Raw returns the platform bytes this record was decoded from, if any.
func (a Actor) Raw() json.RawMessage {
	return a.raw
}

// Destroyed reports whether the actor reached its terminal state.
func (a Actor) Destroyed() bool {
	return a.DestroyedAt != nil
}

// NetworkReady reports whether every declared port is ready. An actor with no
// declared ports is trivially ready.
func (a Actor) NetworkReady() bool {
	for _, p := range a.Network.Ports {
		if !p.Ready() {
			return false
		}
	}
	return true
}

// Visible reports public and not destroyed; the by-id lookup contract.
func (a Actor) Visible() bool {
	return a.Tags.IsPublic() && !a.Destroyed()
}

// Eligible reports visible and network ready; the tag lookup contract.
func (a Actor) Eligible() bool {
	return a.Visible() && a.NetworkReady()
}

// Validate enforces the minimal record shape the resolvers rely on.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: actor missing id", ErrInvalidRecord)
	}
	for name, p := range a.Network.Ports {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: actor %q has unnamed port", ErrInvalidRecord, a.ID)
		}
		if p.Port != nil && *p.Port < 0 {
			return fmt.Errorf("%w: actor %q port %q negative", ErrInvalidRecord, a.ID, name)
		}
	}
	return nil
}

// Build is one build record as reported by the platform.
type Build struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Tags      Tags   `json:"tags"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Eligible reports whether the build may be instantiated by this driver.
func (b Build) Eligible() bool {
	return b.Tags.IsPublic()
}

// Validate enforces the minimal build shape the resolver relies on.
func (b Build) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: build missing id", ErrInvalidRecord)
	}
	return nil
}

// CreateRequest is the caller-facing description of a new actor.
type CreateRequest struct {
	Tags   Tags   `json:"tags"`
	Region string `json:"region,omitempty"`
}

// BuildName returns the name tag used to select the build.
func (r CreateRequest) BuildName() string {
	return strings.TrimSpace(r.Tags[TagName])
}

// CreateActorPayload is the body of POST /actors.
type CreateActorPayload struct {
	Tags    Tags           `json:"tags"`
	Build   string         `json:"build"`
	Region  string         `json:"region,omitempty"`
	Network NetworkRequest `json:"network"`
}

type NetworkRequest struct {
	Ports map[string]PortRequest `json:"ports"`
}

type PortRequest struct {
	Protocol     string   `json:"protocol"`
	InternalPort *int     `json:"internalPort,omitempty"`
	Routing      *Routing `json:"routing,omitempty"`
}

const (
	DefaultPortName     = "http"
	DefaultPortProtocol = "https"
)

// DefaultNetwork declares one https port routed through the default gateway.
// Hostname and port are left for the platform to assign.
func DefaultNetwork() NetworkRequest {
	return NetworkRequest{
		Ports: map[string]PortRequest{
			DefaultPortName: {
				Protocol: DefaultPortProtocol,
				Routing:  &Routing{Guard: &GuardRouting{}},
			},
		},
	}
}
