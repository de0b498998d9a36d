package handler

import (
	"errors"
	"net/http"

	"threadkeeper/internal/domain"
	"threadkeeper/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		blockedErr    *domain.BlockedError
		conflictErr   *domain.ConflictError
		submissionErr *domain.SubmissionError
	)

	switch {
	case errors.As(err, &blockedErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, blockedErr.Error(), map[string]interface{}{
			"thread_id":     blockedErr.ThreadID,
			"stuck_run_ids": blockedErr.RunIDs,
		})
	case errors.As(err, &submissionErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, submissionErr.Error(), map[string]interface{}{
			"stage": submissionErr.Stage,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		httputil.RespondError(w, http.StatusBadGateway, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam reads a required path value, writing a 400 when it is empty.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}
