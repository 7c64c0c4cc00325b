package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/auth"
	"github.com/danmuck/actormgr/internal/manager"
	"github.com/danmuck/actormgr/internal/observability"
	"github.com/google/uuid"
)

var codeErrors = map[string]error{
	"not_found":               manager.ErrNotFound,
	"not_found_or_private":    manager.ErrNotFoundOrPrivate,
	"build_not_found":         manager.ErrBuildNotFound,
	"build_not_found_private": errors.Join(manager.ErrBuildNotFound, manager.ErrPrivateBuild),
	"private_actor":           manager.ErrPrivateActor,
	"private_build":           manager.ErrPrivateBuild,
	"already_destroyed":       manager.ErrAlreadyDestroyed,
	"missing_tags":            manager.ErrMissingTags,
	"missing_actor_id":        manager.ErrMissingActorID,
	"missing_build_name":      manager.ErrMissingBuildName,
	"unreachable_query":       manager.ErrUnreachableQuery,
	"invalid_query":           ErrInvalidQuery,
	"unauthorized":            auth.ErrUnauthorized,
}

// Client calls a remote managerd. It satisfies Querier, so errors come back
// as the same manager sentinels a local driver would return.
type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(base), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// WithToken sets the bearer token sent on every query.
func (c *Client) WithToken(token string) *Client {
	c.token = strings.TrimSpace(token)
	return c
}

func (c *Client) QueryActor(ctx context.Context, q manager.Query) (actors.Actor, error) {
	body, err := FromQuery(q)
	if err != nil {
		return actors.Actor{}, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return actors.Actor{}, fmt.Errorf("httpapi: encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/actors/query", bytes.NewReader(payload))
	if err != nil {
		return actors.Actor{}, fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(observability.HeaderRequestID, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return actors.Actor{}, &manager.UpstreamError{Op: "query managerd", Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return actors.Actor{}, &manager.UpstreamError{Op: "query managerd", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return actors.Actor{}, decodeError(resp.StatusCode, data)
	}
	var out QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return actors.Actor{}, &manager.UpstreamError{Op: "decode managerd response", Err: err}
	}
	return out.Actor, nil
}

func decodeError(status int, data []byte) error {
	var body ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &manager.UpstreamError{Op: "query managerd", Err: fmt.Errorf("status %d", status)}
	}
	if sentinel, ok := codeErrors[body.Error]; ok {
		return fmt.Errorf("%w: %s", sentinel, body.Message)
	}
	return &manager.UpstreamError{Op: "query managerd", Err: errors.New(body.Message)}
}
