package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
)

// defaultErrorStatus is used when a process signals an error without a usable
// status code.
const defaultErrorStatus = 400

// Bridge runs worker, workflow and form calls against the engine.
// Calls are never retried.
type Bridge struct {
	client engine.Client
	cfg    config.EngineConfig
	logger *slog.Logger
}

// New creates a Bridge.
func New(client engine.Client, cfg config.EngineConfig, logger *slog.Logger) *Bridge {
	if client == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("engine client cannot be nil for Bridge")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for Bridge")
	}
	return &Bridge{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "bridge")),
	}
}

// WorkerProcessID returns the process id a worker call to name starts.
func (b *Bridge) WorkerProcessID(name string) string {
	return name + b.cfg.WorkerSuffix
}

// CallWorker starts the worker process for name and waits up to the
// configured worker timeout for its result. Keys the caller sent are removed
// from the result. A process that sets ErrorKey yields a *BusinessError.
func (b *Bridge) CallWorker(ctx context.Context, name string, params Params) (map[string]any, error) {
	if name == "" {
		return nil, ErrMissingName
	}

	processID := b.WorkerProcessID(name)
	log := b.callLogger("worker", processID, params)
	start := time.Now()

	log.Info("worker call start")
	result, err := b.client.CreateInstanceWithResult(ctx, processID, params, b.cfg.WorkerTimeout)
	if err != nil {
		log.Info("worker call failed",
			"code", engine.CodeOf(err).String(),
			"duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("worker %s: %w", name, err)
	}
	log.Info("worker call end",
		"instance_key", result.InstanceKey,
		"duration_ms", time.Since(start).Milliseconds())

	if raw, failed := result.Variables[ErrorKey]; failed {
		bErr := &BusinessError{
			Status:  errorStatus(result.Variables[ErrorCodeKey]),
			Message: errorMessage(raw),
		}
		log.Info("worker reported business error",
			"status", bErr.Status)
		return nil, bErr
	}

	return params.strip(result.Variables), nil
}

// StartWorkflow starts the process name with params and returns the new
// instance key without waiting for the process.
func (b *Bridge) StartWorkflow(ctx context.Context, name string, params Params) (int64, error) {
	if name == "" {
		return 0, ErrMissingName
	}

	vars := make(map[string]any, len(params)+1)
	for k, v := range params {
		vars[k] = v
	}
	vars[WorkflowNameKey] = name

	log := b.callLogger("workflow", name, params)
	log.Info("workflow start")
	ctx, cancel := b.requestContext(ctx)
	defer cancel()
	instance, err := b.client.CreateInstance(ctx, name, vars)
	if err != nil {
		log.Info("workflow start failed", "code", engine.CodeOf(err).String())
		return 0, fmt.Errorf("workflow %s: %w", name, err)
	}
	log.Info("workflow started",
		"version", instance.Version,
		"instance_key", instance.InstanceKey)

	return instance.InstanceKey, nil
}

// SubmitForm starts the process name with every form field wrapped as
// {"value": v}.
func (b *Bridge) SubmitForm(ctx context.Context, name string, fields map[string]any) (int64, error) {
	if name == "" {
		return 0, ErrMissingName
	}

	caller, _ := fields[CallerKey].(string)
	log := b.logger.With(
		slog.String("call_id", uuid.NewString()),
		slog.String("call", "form"),
		slog.String("process_id", name),
		slog.String("userid", caller),
	)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	log.Debug("form submitted", "fields", keys)

	ctx, cancel := b.requestContext(ctx)
	defer cancel()
	instance, err := b.client.CreateInstance(ctx, name, formVariables(fields))
	if err != nil {
		log.Info("form process start failed", "code", engine.CodeOf(err).String())
		return 0, fmt.Errorf("form %s: %w", name, err)
	}
	log.Info("form process started",
		"version", instance.Version,
		"instance_key", instance.InstanceKey)

	return instance.InstanceKey, nil
}

// requestContext applies the configured request timeout. A zero timeout
// leaves ctx unbounded.
func (b *Bridge) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.cfg.RequestTimeout)
}

func (b *Bridge) callLogger(call, processID string, params Params) *slog.Logger {
	return b.logger.With(
		slog.String("call_id", uuid.NewString()),
		slog.String("call", call),
		slog.String("process_id", processID),
		slog.String("userid", params.Caller()),
	)
}

// errorStatus accepts a JSON number or a numeric string in the 4xx/5xx range.
func errorStatus(raw any) int {
	var status int
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return defaultErrorStatus
		}
		status = int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return defaultErrorStatus
		}
		status = int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return defaultErrorStatus
		}
		status = n
	default:
		return defaultErrorStatus
	}

	if status < 400 || status > 599 {
		return defaultErrorStatus
	}
	return status
}

func errorMessage(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(b)
}
