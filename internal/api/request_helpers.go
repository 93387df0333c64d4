package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/api/shared"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/bridge"
)

// taskKeyParam is the chi URL parameter holding a task key.
const taskKeyParam = "key"

// callerQuery holds the identity a task route acts for.
type callerQuery struct {
	UserID string `validate:"required"`
}

// getCaller returns the userid query parameter of r. A missing or blank
// userid yields ErrMissingCaller.
func getCaller(r *http.Request) (string, error) {
	q := callerQuery{UserID: strings.TrimSpace(r.URL.Query().Get(bridge.CallerKey))}
	if err := shared.ValidateRequest(q); err != nil {
		return "", ErrMissingCaller
	}
	return q.UserID, nil
}

// getTaskKey parses the task key path parameter.
func getTaskKey(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, taskKeyParam)
	if raw == "" {
		return 0, ErrMissingTaskKey
	}
	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidTaskKey
	}
	return key, nil
}

// respondWithFailure writes the error response for err. Engine failures are
// named after the process they concern.
func respondWithFailure(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
	err error,
	kind CallKind,
	name string,
) {
	status, message := errorResponse(r.Context(), log, err, kind, name)
	opts := []shared.ResponseOption{}
	if status == http.StatusForbidden || status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
