package messaging

import (
	"errors"
	"fmt"
)

// Error taxonomy for the messaging core. Handlers map these to HTTP
// status codes; delivery failures never surface here (they are isolated
// per handle inside the router).

// ValidationError rejects malformed input; no state was mutated.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing message or thread; no fan-out occurred.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.ID }

// PersistenceError wraps a store failure; the triggering action failed
// entirely and no partial fan-out happened.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return "persistence failure: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a missing-resource rejection.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
