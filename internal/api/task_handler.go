package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/api/shared"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/bridge"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/usertask"
)

// TaskRegistry is the view of the active user tasks the task routes need.
type TaskRegistry interface {
	List(assignee, taskID, workflowID string) ([]usertask.Summary, error)
	Get(key int64) (*usertask.Task, error)
	Complete(ctx context.Context, key int64, assignee string, vars map[string]any) error
}

// Query parameters narrowing a task listing.
const (
	taskIDQuery     = "taskId"
	workflowIDQuery = "workflowId"
)

// TaskHandler serves the user task routes.
type TaskHandler struct {
	registry TaskRegistry
	logger   *slog.Logger
}

// NewTaskHandler creates a new TaskHandler. A nil registry means the task API
// is disabled and every route answers 501.
func NewTaskHandler(registry TaskRegistry, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		registry: registry,
		logger:   logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /tasks and GET /task. It lists the tasks assigned to
// the caller, optionally narrowed by taskId and workflowId.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if !h.enabled(w, r, log) {
		return
	}

	caller, err := getCaller(r)
	if err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, "")
		return
	}

	query := r.URL.Query()
	tasks, err := h.registry.List(caller, query.Get(taskIDQuery), query.Get(workflowIDQuery))
	if err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, "")
		return
	}

	log.Debug("listed tasks",
		slog.String("userid", caller),
		slog.Int("count", len(tasks)))
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// GetTask handles GET /task/{key}. Only the task's assignee may read it.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if !h.enabled(w, r, log) {
		return
	}

	caller, key, ok := h.callerAndKey(w, r, log)
	if !ok {
		return
	}

	task, err := h.registry.Get(key)
	if err != nil {
		h.respondTaskFailure(w, r, log, err, key)
		return
	}
	if task.Assignee != caller {
		h.respondTaskFailure(w, r, log, usertask.ErrForbidden, key)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// CompleteTask handles POST /task/{key}. The JSON body, if any, holds the
// variables to complete the task with.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if !h.enabled(w, r, log) {
		return
	}

	caller, key, ok := h.callerAndKey(w, r, log)
	if !ok {
		return
	}

	var vars map[string]any
	if err := shared.DecodeJSON(r, &vars); err != nil {
		respondWithFailure(w, r, log, fmt.Errorf("%w: %v", bridge.ErrInvalidBody, err), ProcessCall, "")
		return
	}

	if err := h.registry.Complete(r.Context(), key, caller, vars); err != nil {
		h.respondTaskFailure(w, r, log, err, key)
		return
	}

	shared.RespondWithText(w, r, http.StatusOK, "COMPLETED")
}

// MissingTaskKey handles POST /task, which has nothing to complete.
func (h *TaskHandler) MissingTaskKey(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if !h.enabled(w, r, log) {
		return
	}
	respondWithFailure(w, r, log, ErrMissingTaskKey, ProcessCall, "")
}

func (h *TaskHandler) enabled(w http.ResponseWriter, r *http.Request, log *slog.Logger) bool {
	if h.registry != nil {
		return true
	}
	respondWithFailure(w, r, log, ErrTaskAPIDisabled, ProcessCall, "")
	return false
}

func (h *TaskHandler) callerAndKey(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, int64, bool) {
	caller, err := getCaller(r)
	if err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, "")
		return "", 0, false
	}

	key, err := getTaskKey(r)
	if err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, "")
		return "", 0, false
	}
	return caller, key, true
}

// respondTaskFailure reports a registry failure. Engine failures name the
// job they concern.
func (h *TaskHandler) respondTaskFailure(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
	err error,
	key int64,
) {
	id := strconv.FormatInt(key, 10)
	status, message := errorResponse(r.Context(), log, err, ProcessCall, "task "+id)
	if status == http.StatusNotFound || status == http.StatusForbidden {
		message = withIdentifier(message, id)
	}

	opts := []shared.ResponseOption{}
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
