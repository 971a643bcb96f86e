// Package fault defines the error taxonomy shared by the lifecycle manager,
// bulk executor, and api services.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no session or connection exists for the given id.
	ErrNotFound = errors.New("not found")
	// ErrNotReady indicates a connection exists but is not yet in a state
	// that can serve the request (still connecting, or pairing code not
	// issued yet).
	ErrNotReady = errors.New("not ready")
	// ErrValidation indicates a malformed caller-supplied value.
	ErrValidation = errors.New("validation failed")
)

// NotFound wraps ErrNotFound with context.
func NotFound(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// NotReady wraps ErrNotReady with context.
func NotReady(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotReady)...)
}

// Validation wraps ErrValidation with context.
func Validation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// TransportError wraps a failed transport call. Bulk items capture these
// per-target; single operations surface them to the caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for the given operation.
func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
