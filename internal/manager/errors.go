package manager

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("manager: actor not found")
	ErrPrivateActor      = errors.New("manager: actor is private")
	ErrPrivateBuild      = errors.New("manager: build is private")
	ErrAlreadyDestroyed  = errors.New("manager: actor already destroyed")
	ErrMissingTags       = errors.New("manager: missing tags")
	ErrNotFoundOrPrivate = errors.New("manager: actor not found or private")
	ErrBuildNotFound     = errors.New("manager: build not found")
	ErrUnreachableQuery  = errors.New("manager: unreachable query")
	ErrMissingActorID    = errors.New("manager: missing actor id")
	ErrMissingBuildName  = errors.New("manager: missing build name tag")
	ErrUpstream          = errors.New("manager: upstream failure")
)

// UpstreamError is a failed platform call. It matches ErrUpstream and
// unwraps to the transport or decode cause.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("manager: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// Code returns a stable short identifier for err, suitable for wire bodies
// and metric labels.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFoundOrPrivate):
		return "not_found_or_private"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBuildNotFound) && errors.Is(err, ErrPrivateBuild):
		return "build_not_found_private"
	case errors.Is(err, ErrBuildNotFound):
		return "build_not_found"
	case errors.Is(err, ErrPrivateActor):
		return "private_actor"
	case errors.Is(err, ErrPrivateBuild):
		return "private_build"
	case errors.Is(err, ErrAlreadyDestroyed):
		return "already_destroyed"
	case errors.Is(err, ErrMissingTags):
		return "missing_tags"
	case errors.Is(err, ErrMissingActorID):
		return "missing_actor_id"
	case errors.Is(err, ErrMissingBuildName):
		return "missing_build_name"
	case errors.Is(err, ErrUnreachableQuery):
		return "unreachable_query"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}
