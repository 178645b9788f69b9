// internal/domain/crime/errors.go

package crime

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no data
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a failure of the underlying store
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("Database error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError reports a missing or malformed parameter
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
