package manager

import (
	"context"
	"errors"

	"github.com/danmuck/actormgr/internal/actors"
)

// Platform is the remote actor-hosting API the manager resolves against.
// *platform.Client satisfies it.
type Platform interface {
	GetActor(ctx context.Context, id string) (actors.Actor, error)
	ListActors(ctx context.Context, tags actors.Tags) ([]actors.Actor, error)
	CreateActor(ctx context.Context, payload actors.CreateActorPayload) (actors.Actor, error)
	ListBuilds(ctx context.Context, tags actors.Tags) ([]actors.Build, error)
}

// Notifier observes actors created by this manager.
type Notifier interface {
	ActorCreated(ctx context.Context, actor actors.Actor) error
}

type notFounder interface {
	NotFound() bool
}

func isNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var nf notFounder
	return errors.As(err, &nf) && nf.NotFound()
}
