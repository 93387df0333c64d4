package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/api/shared"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/bridge"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
)

// nameParam is the chi URL parameter holding a worker or process name.
const nameParam = "name"

// ProcessBridge starts engine processes on behalf of HTTP callers.
type ProcessBridge interface {
	CallWorker(ctx context.Context, name string, params bridge.Params) (map[string]any, error)
	StartWorkflow(ctx context.Context, name string, params bridge.Params) (int64, error)
	SubmitForm(ctx context.Context, name string, fields map[string]any) (int64, error)
}

// WorkflowResponse is returned when a workflow has been started.
type WorkflowResponse struct {
	ProcessID int64 `json:"processID"`
}

// ProcessHandler serves the worker, workflow and form routes.
type ProcessHandler struct {
	bridge ProcessBridge
	logger *slog.Logger
}

// NewProcessHandler creates a new ProcessHandler.
func NewProcessHandler(b ProcessBridge, logger *slog.Logger) *ProcessHandler {
	if b == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("bridge cannot be nil for ProcessHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProcessHandler")
	}

	return &ProcessHandler{
		bridge: b,
		logger: logger.With(slog.String("component", "process_handler")),
	}
}

// CallWorker handles /worker/{name} for every method. The query parameters
// and JSON body become process variables, and the variables the worker
// added are returned.
func (h *ProcessHandler) CallWorker(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	name := chi.URLParam(r, nameParam)

	params, ok := h.gatherParams(w, r, log, WorkerCall, name)
	if !ok {
		return
	}

	result, err := h.bridge.CallWorker(r.Context(), name, params)
	if err != nil {
		respondWithFailure(w, r, log, err, WorkerCall, name)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// StartWorkflow handles POST /workflow/{name}. It starts the process and
// returns its instance key without waiting for it.
func (h *ProcessHandler) StartWorkflow(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	name := chi.URLParam(r, nameParam)

	params, ok := h.gatherParams(w, r, log, ProcessCall, name)
	if !ok {
		return
	}

	key, err := h.bridge.StartWorkflow(r.Context(), name, params)
	if err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, name)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, WorkflowResponse{ProcessID: key})
}

// SubmitForm handles POST /form/{name}. The body may be a JSON object or a
// url-encoded form.
func (h *ProcessHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	name := chi.URLParam(r, nameParam)

	body, err := shared.ReadBody(r)
	if err != nil {
		respondWithFailure(w, r, log, bridge.ErrInvalidBody, ProcessCall, name)
		return
	}

	fields, err := bridge.FormFields(r.Header.Get("Content-Type"), body)
	if err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, name)
		return
	}

	if _, err := h.bridge.SubmitForm(r.Context(), name, fields); err != nil {
		respondWithFailure(w, r, log, err, ProcessCall, name)
		return
	}

	shared.RespondWithText(w, r, http.StatusOK, "POSTED")
}

// Process handles the legacy /process/{name} route: GET calls a worker and
// POST starts a workflow.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.CallWorker(w, r)
	case http.MethodPost:
		h.StartWorkflow(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *ProcessHandler) gatherParams(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
	kind CallKind,
	name string,
) (bridge.Params, bool) {
	body, err := shared.ReadBody(r)
	if err != nil {
		respondWithFailure(w, r, log, bridge.ErrInvalidBody, kind, name)
		return nil, false
	}

	params, err := bridge.GatherParams(r.URL.Query(), r.Method, body)
	if err != nil {
		respondWithFailure(w, r, log, err, kind, name)
		return nil, false
	}
	return params, true
}
