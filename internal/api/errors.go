package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/bridge"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/service/auth"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/usertask"
)

// Request validation errors raised by the handlers themselves.
var (
	// ErrTaskAPIDisabled is returned by the task routes when the registry is turned off.
	ErrTaskAPIDisabled = errors.New("task API is disabled")

	// ErrMissingTaskKey is returned when a task route needs a key and got none.
	ErrMissingTaskKey = errors.New("task key is required")

	// ErrInvalidTaskKey is returned when the task key is not a job key.
	ErrInvalidTaskKey = errors.New("task key must be an integer")

	// ErrMissingCaller is returned when a task route is called without userid.
	ErrMissingCaller = errors.New("userid is required")
)

// StatusClientClosedRequest is written when the caller went away before the
// engine answered. Nobody reads it; it keeps access logs honest.
const StatusClientClosedRequest = 499

// CallKind tells the translator which kind of engine call failed. Timeouts
// are reported differently for the two.
type CallKind int

const (
	// WorkerCall is a call that waits for the process result.
	WorkerCall CallKind = iota
	// ProcessCall starts a process, or acts on one, without waiting for it.
	ProcessCall
)

// TranslateEngineCode maps an engine failure code to the HTTP status and
// message reported to the caller. The mapping is total; the boolean is false
// for codes that fall through to 500.
func TranslateEngineCode(code engine.Code, kind CallKind, name string) (int, string, bool) {
	switch code {
	case engine.CodeNotFound:
		return http.StatusNotFound, fmt.Sprintf("Camunda process %s not found", name), true
	case engine.CodeDeadlineExceeded:
		status := http.StatusGatewayTimeout
		if kind == WorkerCall {
			status = http.StatusRequestTimeout
		}
		return status, fmt.Sprintf("Camunda process %s timeout", name), true
	case engine.CodeUnavailable:
		return http.StatusServiceUnavailable, "Camunda/Zeebe engine not responding", true
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Unknown Camunda error: %s", code), false
	}
}

// TranslateEngineError translates err like TranslateEngineCode. Codes outside
// the table are logged at FATAL level.
func TranslateEngineError(ctx context.Context, log *slog.Logger, err error, kind CallKind, name string) (int, string) {
	code := engine.CodeOf(err)
	status, message, known := TranslateEngineCode(code, kind, name)
	if !known {
		logger.Fatal(ctx, log, "unmapped engine failure",
			"code", code.String(),
			"process", name,
			"error", err)
	}
	return status, message
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var businessErr *bridge.BusinessError
	switch {
	case errors.As(err, &businessErr):
		return businessErr.Status

	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, usertask.ErrMissingAssignee),
		errors.Is(err, ErrMissingCaller):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, usertask.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, usertask.ErrTaskNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, bridge.ErrReservedKey),
		errors.Is(err, bridge.ErrInvalidBody),
		errors.Is(err, bridge.ErrMissingName),
		errors.Is(err, ErrMissingTaskKey),
		errors.Is(err, ErrInvalidTaskKey):
		return http.StatusBadRequest

	case errors.Is(err, bridge.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, ErrTaskAPIDisabled):
		return http.StatusNotImplemented

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var businessErr *bridge.BusinessError
	switch {
	case errors.As(err, &businessErr):
		return businessErr.Message

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Unauthorized"

	case errors.Is(err, usertask.ErrMissingAssignee),
		errors.Is(err, ErrMissingCaller):
		return "Missing userid"

	case errors.Is(err, usertask.ErrForbidden):
		return "Task is assigned to another user"

	case errors.Is(err, usertask.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, bridge.ErrReservedKey):
		return fmt.Sprintf("Parameter names starting with %s are reserved", bridge.ReservedPrefix)

	case errors.Is(err, bridge.ErrInvalidBody):
		return "Invalid request body"

	case errors.Is(err, bridge.ErrMissingName):
		return "Process name is required"

	case errors.Is(err, bridge.ErrUnsupportedMediaType):
		return "Content type must be application/json or application/x-www-form-urlencoded"

	case errors.Is(err, ErrMissingTaskKey):
		return "Task key is required"

	case errors.Is(err, ErrInvalidTaskKey):
		return "Invalid task key"

	case errors.Is(err, ErrTaskAPIDisabled):
		return "Task API is disabled"

	default:
		return "An unexpected error occurred"
	}
}

// errorResponse picks the status and message for err. Errors the handlers
// know are mapped directly; engine failures go through the translator.
func errorResponse(ctx context.Context, log *slog.Logger, err error, kind CallKind, name string) (int, string) {
	var businessErr *bridge.BusinessError
	if errors.As(err, &businessErr) {
		return businessErr.Status, businessErr.Message
	}

	if status := MapErrorToStatusCode(err); status != http.StatusInternalServerError {
		return status, GetSafeErrorMessage(err)
	}

	if engine.IsCode(err, engine.CodeCanceled) {
		log.Debug("request canceled before the engine answered",
			"process", name,
			"error", err)
		return StatusClientClosedRequest, "Request canceled"
	}

	var engineErr *engine.Error
	if errors.As(err, &engineErr) || errors.Is(err, context.DeadlineExceeded) {
		return TranslateEngineError(ctx, log, err, kind, name)
	}

	return http.StatusInternalServerError, GetSafeErrorMessage(err)
}

// withIdentifier appends the identifier a message is about.
func withIdentifier(message, id string) string {
	if id == "" || strings.Contains(message, id) {
		return message
	}
	return fmt.Sprintf("%s: %s", message, id)
}
