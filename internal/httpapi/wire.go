package httpapi

import (
	"errors"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/manager"
)

var ErrInvalidQuery = errors.New("httpapi: query must set exactly one of getForId, getOrCreateForTags, create")

// QueryRequest is the body of POST /actors/query.
type QueryRequest struct {
	Query *WireQuery `json:"query"`
}

// WireQuery is the JSON form of manager.Query. Exactly one field is set.
type WireQuery struct {
	GetForID           *WireGetForID           `json:"getForId,omitempty"`
	GetOrCreateForTags *WireGetOrCreateForTags `json:"getOrCreateForTags,omitempty"`
	Create             *actors.CreateRequest   `json:"create,omitempty"`
}

type WireGetForID struct {
	ActorID string `json:"actorId"`
}

type WireGetOrCreateForTags struct {
	Tags   actors.Tags           `json:"tags"`
	Create *actors.CreateRequest `json:"create,omitempty"`
}

// QueryResponse carries the resolved record exactly as the platform sent it.
type QueryResponse struct {
	Actor actors.Actor `json:"actor"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ToQuery converts the wire form into a manager query.
func (r QueryRequest) ToQuery() (manager.Query, error) {
	if r.Query == nil {
		return nil, ErrInvalidQuery
	}
	set := 0
	if r.Query.GetForID != nil {
		set++
	}
	if r.Query.GetOrCreateForTags != nil {
		set++
	}
	if r.Query.Create != nil {
		set++
	}
	if set != 1 {
		return nil, ErrInvalidQuery
	}

	switch {
	case r.Query.GetForID != nil:
		return manager.GetForID{ActorID: r.Query.GetForID.ActorID}, nil
	case r.Query.GetOrCreateForTags != nil:
		q := r.Query.GetOrCreateForTags
		return manager.GetOrCreateForTags{Tags: q.Tags, Create: q.Create}, nil
	default:
		return manager.Create{Request: *r.Query.Create}, nil
	}
}

// FromQuery is the inverse of ToQuery, used by clients of this API. It accepts
// the same variants the driver dispatches, pointer forms included.
func FromQuery(q manager.Query) (QueryRequest, error) {
	switch v := q.(type) {
	case *manager.GetForID:
		if v != nil {
			return FromQuery(*v)
		}
	case *manager.GetOrCreateForTags:
		if v != nil {
			return FromQuery(*v)
		}
	case *manager.Create:
		if v != nil {
			return FromQuery(*v)
		}
	case manager.GetForID:
		return QueryRequest{Query: &WireQuery{GetForID: &WireGetForID{ActorID: v.ActorID}}}, nil
	case manager.GetOrCreateForTags:
		return QueryRequest{Query: &WireQuery{GetOrCreateForTags: &WireGetOrCreateForTags{Tags: v.Tags, Create: v.Create}}}, nil
	case manager.Create:
		req := v.Request
		return QueryRequest{Query: &WireQuery{Create: &req}}, nil
	}
	return QueryRequest{}, manager.ErrUnreachableQuery
}
