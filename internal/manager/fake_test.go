package manager

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/danmuck/actormgr/internal/actors"
)

type fakePlatform struct {
	mu sync.Mutex

	byID    map[string]actors.Actor
	list    []actors.Actor
	builds  []actors.Build
	created actors.Actor

	getErr    error
	listErr   error
	buildsErr error
	createErr error

	listFilters  []actors.Tags
	buildFilters []actors.Tags
	payloads     []actors.CreateActorPayload
	calls        []string
}

func (f *fakePlatform) GetActor(_ context.Context, id string) (actors.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "get")
	if f.getErr != nil {
		return actors.Actor{}, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return actors.Actor{}, notFoundErr{}
	}
	return a, nil
}

func (f *fakePlatform) ListActors(_ context.Context, tags actors.Tags) ([]actors.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	f.listFilters = append(f.listFilters, tags.Clone())
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]actors.Actor(nil), f.list...), nil
}

func (f *fakePlatform) CreateActor(_ context.Context, payload actors.CreateActorPayload) (actors.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	f.payloads = append(f.payloads, payload)
	if f.createErr != nil {
		return actors.Actor{}, f.createErr
	}
	return f.created, nil
}

func (f *fakePlatform) ListBuilds(_ context.Context, tags actors.Tags) ([]actors.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "builds")
	f.buildFilters = append(f.buildFilters, tags.Clone())
	if f.buildsErr != nil {
		return nil, f.buildsErr
	}
	return append([]actors.Build(nil), f.builds...), nil
}

func (f *fakePlatform) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type notFoundErr struct{}

func (notFoundErr) Error() string  { return "status 404" }
func (notFoundErr) NotFound() bool { return true }

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	err     error
}

func (n *recordingNotifier) ActorCreated(_ context.Context, a actors.Actor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, a.ID)
	return n.err
}

func decodeActor(t *testing.T, raw string) actors.Actor {
	t.Helper()
	var a actors.Actor
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("decode actor: %v", err)
	}
	return a
}

func readyActor(id string, tags actors.Tags) actors.Actor {
	host := id + ".actors.test"
	port := 443
	return actors.Actor{
		ID:   id,
		Tags: tags,
		Network: actors.Network{Ports: map[string]actors.Port{
			"http": {Protocol: "https", Hostname: &host, Port: &port},
		}},
	}
}

func pendingActor(id string, tags actors.Tags) actors.Actor {
	return actors.Actor{
		ID:   id,
		Tags: tags,
		Network: actors.Network{Ports: map[string]actors.Port{
			"http": {Protocol: "https"},
		}},
	}
}

func destroyed(a actors.Actor) actors.Actor {
	at := int64(1700000000000)
	a.DestroyedAt = &at
	return a
}

func publicTags(kv ...string) actors.Tags {
	t := actors.Tags{actors.TagAccess: actors.AccessPublic}
	for i := 0; i+1 < len(kv); i += 2 {
		t[kv[i]] = kv[i+1]
	}
	return t
}
