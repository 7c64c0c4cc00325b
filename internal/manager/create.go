package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/observability"
	"github.com/rs/zerolog/log"
)

// ActorCreator instantiates the current build for a create request.
type ActorCreator struct {
	platform Platform
	builds   *BuildResolver
	notifier Notifier
}

func NewActorCreator(p Platform, builds *BuildResolver, notifier Notifier) *ActorCreator {
	if builds == nil {
		builds = NewBuildResolver(p)
	}
	return &ActorCreator{platform: p, builds: builds, notifier: notifier}
}

// Create resolves the build named by req's name tag and submits one public
// actor with a single guarded https port. The platform record is returned
// as-is; it is usually not network ready yet.
func (c *ActorCreator) Create(ctx context.Context, req actors.CreateRequest) (actors.Actor, error) {
	name := req.BuildName()
	if name == "" {
		return actors.Actor{}, ErrMissingBuildName
	}

	lookup, err := c.builds.find(ctx, name)
	if err != nil {
		return actors.Actor{}, err
	}
	if !lookup.found {
		if lookup.privateSeen {
			return actors.Actor{}, fmt.Errorf("%w: %q: %w", ErrBuildNotFound, name, ErrPrivateBuild)
		}
		return actors.Actor{}, fmt.Errorf("%w: %q", ErrBuildNotFound, name)
	}

	payload := Payload(req, lookup.build)
	log.Ctx(ctx).Info().
		Str("build", payload.Build).
		Str("region", payload.Region).
		Stringer("tags", payload.Tags).
		Msg("creating actor")

	created, err := c.platform.CreateActor(ctx, payload)
	if err != nil {
		return actors.Actor{}, upstream("create actor", err)
	}
	observability.RecordActorCreated()

	if c.notifier != nil {
		if err := c.notifier.ActorCreated(ctx, created); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("actor_id", created.ID).Msg("actor created notification failed")
		}
	}
	return created, nil
}

// Payload builds the POST /actors body for req against build.
func Payload(req actors.CreateRequest, build actors.Build) actors.CreateActorPayload {
	return actors.CreateActorPayload{
		Tags:    req.Tags.Public(),
		Build:   build.ID,
		Region:  strings.TrimSpace(req.Region),
		Network: actors.DefaultNetwork(),
	}
}
