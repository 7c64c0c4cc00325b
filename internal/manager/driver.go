package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/observability"
	"github.com/rs/zerolog/log"
)

// Driver answers actor queries against one platform. It holds no mutable
// state and is safe for concurrent use.
type Driver struct {
	platform Platform
	actors   *ActorResolver
	creator  *ActorCreator
}

type Option func(*driverOptions)

type driverOptions struct {
	notifier Notifier
}

// WithNotifier reports every created actor to n.
func WithNotifier(n Notifier) Option {
	return func(o *driverOptions) {
		o.notifier = n
	}
}

func NewDriver(p Platform, opts ...Option) *Driver {
	var o driverOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{
		platform: p,
		actors:   NewActorResolver(p),
		creator:  NewActorCreator(p, NewBuildResolver(p), o.notifier),
	}
}

// QueryActor resolves q to exactly one actor record or fails with one of the
// package errors.
func (d *Driver) QueryActor(ctx context.Context, q Query) (actors.Actor, error) {
	kind := kindOf(q)
	log.Ctx(ctx).Debug().Str("kind", kind).Interface("query", q).Msg("query")

	start := time.Now()
	a, err := d.dispatch(ctx, q)
	observability.RecordQuery(kind, Code(err), time.Since(start))
	if err != nil {
		log.Ctx(ctx).Debug().Str("kind", kind).Err(err).Msg("query failed")
		return actors.Actor{}, err
	}
	return a, nil
}

func (d *Driver) dispatch(ctx context.Context, q Query) (actors.Actor, error) {
	switch v := q.(type) {
	case GetForID:
		return d.getForID(ctx, v)
	case *GetForID:
		if v != nil {
			return d.getForID(ctx, *v)
		}
	case GetOrCreateForTags:
		return d.getOrCreate(ctx, v)
	case *GetOrCreateForTags:
		if v != nil {
			return d.getOrCreate(ctx, *v)
		}
	case Create:
		return d.creator.Create(ctx, v.Request)
	case *Create:
		if v != nil {
			return d.creator.Create(ctx, v.Request)
		}
	}
	return actors.Actor{}, fmt.Errorf("%w: %T", ErrUnreachableQuery, q)
}

func (d *Driver) getForID(ctx context.Context, q GetForID) (actors.Actor, error) {
	if strings.TrimSpace(q.ActorID) == "" {
		return actors.Actor{}, ErrMissingActorID
	}
	a, err := d.platform.GetActor(ctx, q.ActorID)
	if err != nil {
		if isNotFound(err) {
			return actors.Actor{}, fmt.Errorf("%w: %q", ErrNotFound, q.ActorID)
		}
		return actors.Actor{}, upstream("get actor", err)
	}
	if !a.Tags.IsPublic() {
		return actors.Actor{}, fmt.Errorf("%w: %q", ErrPrivateActor, q.ActorID)
	}
	if a.Destroyed() {
		return actors.Actor{}, fmt.Errorf("%w: %q", ErrAlreadyDestroyed, q.ActorID)
	}
	return a, nil
}

func (d *Driver) getOrCreate(ctx context.Context, q GetOrCreateForTags) (actors.Actor, error) {
	if len(q.Tags) == 0 {
		return actors.Actor{}, ErrMissingTags
	}
	a, found, err := d.actors.FindByTags(ctx, q.Tags)
	if err != nil {
		return actors.Actor{}, err
	}
	if found {
		return a, nil
	}
	if q.Create == nil {
		return actors.Actor{}, fmt.Errorf("%w: %s", ErrNotFoundOrPrivate, q.Tags)
	}
	return d.creator.Create(ctx, *q.Create)
}
