package httpapi

import (
	"errors"
	"net/http"

	"github.com/danmuck/actormgr/internal/manager"
)

// StatusFor maps a driver error to the HTTP status returned to callers.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, manager.ErrNotFound),
		errors.Is(err, manager.ErrNotFoundOrPrivate),
		errors.Is(err, manager.ErrBuildNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrPrivateActor),
		errors.Is(err, manager.ErrPrivateBuild):
		return http.StatusForbidden
	case errors.Is(err, manager.ErrAlreadyDestroyed):
		return http.StatusGone
	case errors.Is(err, manager.ErrMissingTags),
		errors.Is(err, manager.ErrMissingActorID),
		errors.Is(err, manager.ErrMissingBuildName),
		errors.Is(err, manager.ErrUnreachableQuery),
		errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, manager.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	if errors.Is(err, ErrInvalidQuery) {
		return "invalid_query"
	}
	return manager.Code(err)
}
