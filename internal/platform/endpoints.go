package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/danmuck/actormgr/internal/actors"
)

const (
	routeActor  = "/actors/{id}"
	routeActors = "/actors"
	routeBuilds = "/builds"

	paramTagsJSON = "tags_json"
)

type actorEnvelope struct {
	Actor *actors.Actor `json:"actor"`
}

type actorsEnvelope struct {
	Actors *[]actors.Actor `json:"actors"`
}

type buildsEnvelope struct {
	Builds *[]actors.Build `json:"builds"`
}

// GetActor fetches one actor by id (GET /actors/{id}).
func (c *Client) GetActor(ctx context.Context, id string) (actors.Actor, error) {
	path := "/actors/" + url.PathEscape(id)
	var env actorEnvelope
	if err := c.do(ctx, routeActor, http.MethodGet, path, nil, nil, &env); err != nil {
		return actors.Actor{}, err
	}
	return validActor(env.Actor, path)
}

// ListActors lists actors matching every tag in tags (GET /actors?tags_json=).
func (c *Client) ListActors(ctx context.Context, tags actors.Tags) ([]actors.Actor, error) {
	query, err := tagsQuery(tags)
	if err != nil {
		return nil, err
	}
	var env actorsEnvelope
	if err := c.do(ctx, routeActors, http.MethodGet, routeActors, query, nil, &env); err != nil {
		return nil, err
	}
	if env.Actors == nil {
		return nil, fmt.Errorf("%w: GET %s: missing actors", ErrMalformedResponse, routeActors)
	}
	list := *env.Actors
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: GET %s: actors[%d]: %w", ErrMalformedResponse, routeActors, i, err)
		}
	}
	return list, nil
}

// CreateActor submits one creation request (POST /actors).
func (c *Client) CreateActor(ctx context.Context, payload actors.CreateActorPayload) (actors.Actor, error) {
	var env actorEnvelope
	if err := c.do(ctx, routeActors, http.MethodPost, routeActors, nil, payload, &env); err != nil {
		return actors.Actor{}, err
	}
	return validActor(env.Actor, routeActors)
}

// ListBuilds lists builds matching every tag in tags (GET /builds?tags_json=).
func (c *Client) ListBuilds(ctx context.Context, tags actors.Tags) ([]actors.Build, error) {
	query, err := tagsQuery(tags)
	if err != nil {
		return nil, err
	}
	var env buildsEnvelope
	if err := c.do(ctx, routeBuilds, http.MethodGet, routeBuilds, query, nil, &env); err != nil {
		return nil, err
	}
	if env.Builds == nil {
		return nil, fmt.Errorf("%w: GET %s: missing builds", ErrMalformedResponse, routeBuilds)
	}
	list := *env.Builds
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: GET %s: builds[%d]: %w", ErrMalformedResponse, routeBuilds, i, err)
		}
	}
	return list, nil
}

func validActor(a *actors.Actor, path string) (actors.Actor, error) {
	if a == nil {
		return actors.Actor{}, fmt.Errorf("%w: %s: missing actor", ErrMalformedResponse, path)
	}
	if err := a.Validate(); err != nil {
		return actors.Actor{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	return *a, nil
}

func tagsQuery(tags actors.Tags) (url.Values, error) {
	encoded, err := tags.Encode()
	if err != nil {
		return nil, fmt.Errorf("platform: encode tags: %w", err)
	}
	return url.Values{paramTagsJSON: []string{encoded}}, nil
}
