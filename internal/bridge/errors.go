package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrReservedKey is returned when a caller parameter uses ReservedPrefix.
	ErrReservedKey = errors.New("parameter name uses a reserved prefix")

	// ErrInvalidBody is returned when a request body is not the JSON it claims to be.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrUnsupportedMediaType is returned for form submissions that are neither
	// JSON nor url-encoded.
	ErrUnsupportedMediaType = errors.New("unsupported content type")

	// ErrMissingName is returned when no worker or workflow name is given.
	ErrMissingName = errors.New("process name is required")
)

// BusinessError is a failure signaled by the process itself through the
// ErrorKey variable. Status is the HTTP status the process asked for.
type BusinessError struct {
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("process reported error %d: %s", e.Status, e.Message)
}
