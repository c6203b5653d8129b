package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/freeeve/marchlands/internal/service"
)

// errorStatus maps service errors to HTTP status codes. Unknown errors
// are treated as internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrVillageNotFound),
		errors.Is(err, service.ErrTargetVillageNotFound),
		errors.Is(err, service.ErrMovementNotFound),
		errors.Is(err, service.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrMaxLevelReached),
		errors.Is(err, service.ErrInsufficientResources),
		errors.Is(err, service.ErrInsufficientPopulation),
		errors.Is(err, service.ErrInsufficientUnits),
		errors.Is(err, service.ErrBarracksRequired),
		errors.Is(err, service.ErrUnknownBuilding),
		errors.Is(err, service.ErrUnknownUnit),
		errors.Is(err, service.ErrInvalidCount),
		errors.Is(err, service.ErrSelfTarget),
		errors.Is(err, service.ErrNoUnits),
		errors.Is(err, service.ErrNotSupport),
		errors.Is(err, service.ErrAlreadyReturning),
		errors.Is(err, service.ErrAlreadyCompleted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses a numeric path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}
