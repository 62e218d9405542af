package watch

import (
	"errors"
	"fmt"
)

// ErrNotPending is returned by conditional store updates when the stored
// document already left PENDING or was deleted. The monitor treats it as a
// benign race with a user action.
var ErrNotPending = errors.New("watch is no longer pending")

// ValidationError is a request the caller must fix; it is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NotFoundError is an unknown id or an id the caller does not own.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("watch %s not found", e.ID)
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
