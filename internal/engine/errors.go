package engine

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies an engine failure.
type Code int

// Failure codes. They mirror the gRPC codes the Zeebe gateway reports.
const (
	CodeUnknown Code = iota
	CodeNotFound
	CodeDeadlineExceeded
	CodeUnavailable
	CodeInvalidArgument
	CodeFailedPrecondition
	CodeResourceExhausted
	CodePermissionDenied
	CodeCanceled
	CodeInternal
)

var codeNames = map[Code]string{
	CodeUnknown:            "UNKNOWN",
	CodeNotFound:           "NOT_FOUND",
	CodeDeadlineExceeded:   "DEADLINE_EXCEEDED",
	CodeUnavailable:        "UNAVAILABLE",
	CodeInvalidArgument:    "INVALID_ARGUMENT",
	CodeFailedPrecondition: "FAILED_PRECONDITION",
	CodeResourceExhausted:  "RESOURCE_EXHAUSTED",
	CodePermissionDenied:   "PERMISSION_DENIED",
	CodeCanceled:           "CANCELED",
	CodeInternal:           "INTERNAL",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// Error is returned by every Client operation that fails.
type Error struct {
	// Op is the engine operation, e.g. "CreateProcessInstance".
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("engine %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error.
func NewError(op string, code Code, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

// CodeOf returns the Code carried by err. Errors that did not come from the
// engine classify as CodeUnknown, except context errors.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}

	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeUnknown
	}
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

var grpcCodes = map[codes.Code]Code{
	codes.NotFound:           CodeNotFound,
	codes.DeadlineExceeded:   CodeDeadlineExceeded,
	codes.Unavailable:        CodeUnavailable,
	codes.InvalidArgument:    CodeInvalidArgument,
	codes.FailedPrecondition: CodeFailedPrecondition,
	codes.ResourceExhausted:  CodeResourceExhausted,
	codes.PermissionDenied:   CodePermissionDenied,
	codes.Canceled:           CodeCanceled,
	codes.Internal:           CodeInternal,
}

// fromGRPC wraps a transport error from op into an *Error.
func fromGRPC(op string, err error) error {
	if err == nil {
		return nil
	}

	// Deadlines set on our side surface as context errors before any status.
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(op, CodeDeadlineExceeded, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(op, CodeCanceled, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return NewError(op, CodeUnknown, err)
	}
	code, known := grpcCodes[st.Code()]
	if !known {
		code = CodeUnknown
	}
	return NewError(op, code, err)
}
