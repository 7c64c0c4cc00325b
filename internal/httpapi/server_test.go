package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/auth"
	"github.com/danmuck/actormgr/internal/manager"
	"github.com/danmuck/actormgr/internal/observability"
	"github.com/danmuck/actormgr/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	got   []manager.Query
	actor actors.Actor
	err   error
}

func (f *fakeQuerier) QueryActor(_ context.Context, q manager.Query) (actors.Actor, error) {
	f.got = append(f.got, q)
	return f.actor, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeActor(t *testing.T, raw string) actors.Actor {
	t.Helper()
	var a actors.Actor
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	return a
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/actors/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryReturnsRecordVerbatim(t *testing.T) {
	testlog.Start(t)
	const raw = `{"id":"a1","tags":{"access":"public"},"network":{"ports":{}},"vendor":{"x":1}}`
	fq := &fakeQuerier{actor: decodeActor(t, raw)}
	s := NewServer(fq, Options{})

	rec := post(t, s.Handler(), `{"query":{"getForId":{"actorId":"a1"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"actor":`+raw+`}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(observability.HeaderRequestID))
	require.Len(t, fq.got, 1)
	assert.Equal(t, manager.GetForID{ActorID: "a1"}, fq.got[0])
}

func TestQueryDecodesEveryVariant(t *testing.T) {
	testlog.Start(t)
	fq := &fakeQuerier{actor: actors.Actor{ID: "x", Tags: actors.Tags{"access": "public"}}}
	s := NewServer(fq, Options{})

	bodies := []string{
		`{"query":{"getOrCreateForTags":{"tags":{"name":"game"}}}}`,
		`{"query":{"getOrCreateForTags":{"tags":{"name":"game"},"create":{"tags":{"name":"game"},"region":"atl"}}}}`,
		`{"query":{"create":{"tags":{"name":"game"}}}}`,
	}
	for _, body := range bodies {
		rec := post(t, s.Handler(), body)
		require.Equal(t, http.StatusOK, rec.Code, body)
	}
	require.Len(t, fq.got, 3)
	assert.Equal(t, manager.GetOrCreateForTags{Tags: actors.Tags{"name": "game"}}, fq.got[0])
	assert.Equal(t, manager.GetOrCreateForTags{
		Tags:   actors.Tags{"name": "game"},
		Create: &actors.CreateRequest{Tags: actors.Tags{"name": "game"}, Region: "atl"},
	}, fq.got[1])
	assert.Equal(t, manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}}}, fq.got[2])
}

func TestQueryRejectsMalformedBodies(t *testing.T) {
	testlog.Start(t)
	fq := &fakeQuerier{}
	s := NewServer(fq, Options{})

	for _, body := range []string{
		`not json`,
		`{}`,
		`{"query":{}}`,
		`{"query":{"getForId":{"actorId":"a"},"create":{"tags":{}}}}`,
	} {
		rec := post(t, s.Handler(), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, fq.got)
}

func TestQueryMapsErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{manager.ErrNotFound, http.StatusNotFound, "not_found"},
		{manager.ErrNotFoundOrPrivate, http.StatusNotFound, "not_found_or_private"},
		{manager.ErrBuildNotFound, http.StatusNotFound, "build_not_found"},
		{errors.Join(manager.ErrBuildNotFound, manager.ErrPrivateBuild), http.StatusNotFound, "build_not_found_private"},
		{manager.ErrPrivateActor, http.StatusForbidden, "private_actor"},
		{manager.ErrAlreadyDestroyed, http.StatusGone, "already_destroyed"},
		{manager.ErrMissingTags, http.StatusBadRequest, "missing_tags"},
		{&manager.UpstreamError{Op: "list actors", Err: errors.New("reset")}, http.StatusBadGateway, "upstream"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		s := NewServer(&fakeQuerier{err: tc.err}, Options{})
		rec := post(t, s.Handler(), `{"query":{"getForId":{"actorId":"a"}}}`)
		assert.Equal(t, tc.status, rec.Code, tc.code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Error)
		assert.NotEmpty(t, body.Message)
	}
}

func TestSwapReplacesQuerier(t *testing.T) {
	testlog.Start(t)
	first := &fakeQuerier{actor: actors.Actor{ID: "first"}}
	second := &fakeQuerier{actor: actors.Actor{ID: "second"}}
	s := NewServer(first, Options{})

	post(t, s.Handler(), `{"query":{"getForId":{"actorId":"a"}}}`)
	s.Swap(second)
	rec := post(t, s.Handler(), `{"query":{"getForId":{"actorId":"a"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"second"`)
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)
}

func TestHealthAndCORS(t *testing.T) {
	testlog.Start(t)
	s := NewServer(&fakeQuerier{}, Options{Name: "managerd", Version: "1.2.3", CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "managerd", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClientRoundTripsErrors(t *testing.T) {
	testlog.Start(t)
	fq := &fakeQuerier{err: manager.ErrPrivateActor}
	srv := httptest.NewServer(NewServer(fq, Options{}).Handler())
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.QueryActor(context.Background(), manager.GetForID{ActorID: "a"})
	assert.ErrorIs(t, err, manager.ErrPrivateActor)

	fq.err = &manager.UpstreamError{Op: "list actors", Err: errors.New("reset")}
	_, err = c.QueryActor(context.Background(), manager.GetForID{ActorID: "a"})
	assert.ErrorIs(t, err, manager.ErrUpstream)

	fq.err = nil
	fq.actor = decodeActor(t, `{"id":"a","tags":{"access":"public"},"network":{}}`)
	got, err := c.QueryActor(context.Background(), manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}}})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}}}, fq.got[len(fq.got)-1])

	_, err = c.QueryActor(context.Background(), nil)
	assert.ErrorIs(t, err, manager.ErrUnreachableQuery)
}

func TestClientKeepsPrivateBuildCause(t *testing.T) {
	testlog.Start(t)
	fq := &fakeQuerier{err: fmt.Errorf("%w: %q: %w", manager.ErrBuildNotFound, "game", manager.ErrPrivateBuild)}
	srv := httptest.NewServer(NewServer(fq, Options{}).Handler())
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).QueryActor(context.Background(), manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}}})
	assert.ErrorIs(t, err, manager.ErrBuildNotFound)
	assert.ErrorIs(t, err, manager.ErrPrivateBuild)

	fq.err = manager.ErrBuildNotFound
	_, err = NewClient(srv.URL, 0).QueryActor(context.Background(), manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}}})
	assert.ErrorIs(t, err, manager.ErrBuildNotFound)
	assert.NotErrorIs(t, err, manager.ErrPrivateBuild)
}

func TestClientAcceptsPointerQueries(t *testing.T) {
	testlog.Start(t)
	fq := &fakeQuerier{actor: actors.Actor{ID: "a"}}
	srv := httptest.NewServer(NewServer(fq, Options{}).Handler())
	defer srv.Close()
	c := NewClient(srv.URL, 0)

	queries := []manager.Query{
		&manager.GetForID{ActorID: "a"},
		&manager.GetOrCreateForTags{Tags: actors.Tags{"name": "game"}},
		&manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}, Region: "lax"}},
	}
	want := []manager.Query{
		manager.GetForID{ActorID: "a"},
		manager.GetOrCreateForTags{Tags: actors.Tags{"name": "game"}},
		manager.Create{Request: actors.CreateRequest{Tags: actors.Tags{"name": "game"}, Region: "lax"}},
	}
	for _, q := range queries {
		_, err := c.QueryActor(context.Background(), q)
		require.NoError(t, err, q.Kind())
	}
	assert.Equal(t, want, fq.got)

	var nilCreate *manager.Create
	_, err := c.QueryActor(context.Background(), nilCreate)
	assert.ErrorIs(t, err, manager.ErrUnreachableQuery)
	assert.Len(t, fq.got, len(want))
}

func TestQueryRequiresTokenWhenConfigured(t *testing.T) {
	testlog.Start(t)
	fq := &fakeQuerier{actor: actors.Actor{ID: "a"}}
	s := NewServer(fq, Options{Auth: auth.StaticToken{Token: "s3cret"}})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).QueryActor(context.Background(), manager.GetForID{ActorID: "a"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Empty(t, fq.got)

	got, err := NewClient(srv.URL, 0).WithToken("s3cret").QueryActor(context.Background(), manager.GetForID{ActorID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
