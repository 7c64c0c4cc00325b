package manager

import (
	"context"
	"sort"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/rs/zerolog/log"
)

// ActorResolver finds the one eligible actor for a tag set.
type ActorResolver struct {
	platform Platform
}

func NewActorResolver(p Platform) *ActorResolver {
	return &ActorResolver{platform: p}
}

// FindByTags lists actors matching tags plus access=public and returns the
// eligible record with the smallest id. found is false when none qualifies.
func (r *ActorResolver) FindByTags(ctx context.Context, tags actors.Tags) (actors.Actor, bool, error) {
	list, err := r.platform.ListActors(ctx, tags.Public())
	if err != nil {
		return actors.Actor{}, false, upstream("list actors", err)
	}

	candidates := make([]actors.Actor, 0, len(list))
	for _, a := range list {
		if !a.Tags.IsPublic() {
			log.Ctx(ctx).Warn().
				Str("actor_id", a.ID).
				Stringer("tags", a.Tags).
				Msg("platform returned non-public actor for public filter")
			continue
		}
		if a.Destroyed() || !a.NetworkReady() {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return actors.Actor{}, false, nil
	}
	sortActors(candidates)
	return candidates[0], true, nil
}

// BuildResolver selects the current public build for a build name.
type BuildResolver struct {
	platform Platform
}

func NewBuildResolver(p Platform) *BuildResolver {
	return &BuildResolver{platform: p}
}

// FindCurrentBuild returns the public build tagged name=<name>, current=true
// with the smallest id.
func (r *BuildResolver) FindCurrentBuild(ctx context.Context, name string) (actors.Build, bool, error) {
	res, err := r.find(ctx, name)
	return res.build, res.found, err
}

type buildLookup struct {
	build       actors.Build
	found       bool
	privateSeen bool
}

func (r *BuildResolver) find(ctx context.Context, name string) (buildLookup, error) {
	filter := actors.Tags{
		actors.TagName:    name,
		actors.TagCurrent: "true",
		actors.TagAccess:  actors.AccessPublic,
	}
	list, err := r.platform.ListBuilds(ctx, filter)
	if err != nil {
		return buildLookup{}, upstream("list builds", err)
	}

	var out buildLookup
	candidates := make([]actors.Build, 0, len(list))
	for _, b := range list {
		if !b.Eligible() {
			out.privateSeen = true
			continue
		}
		candidates = append(candidates, b)
	}
	if len(candidates) == 0 {
		return out, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	out.build = candidates[0]
	out.found = true
	return out, nil
}

func sortActors(list []actors.Actor) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
}
