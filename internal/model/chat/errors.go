package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage wraps every persistence-layer fault.
	ErrStorage = errors.New("storage error")
	// ErrAdapter wraps inference, memory and generation failures, including timeouts.
	ErrAdapter = errors.New("adapter error")
	// ErrSessionNotFound is returned when a session id has no stored row.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Required builds the ValidationError for a missing field.
func Required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StorageError wraps err so that errors.Is(err, ErrStorage) holds.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// AdapterError wraps err so that errors.Is(err, ErrAdapter) holds.
func AdapterError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAdapter, name, err)
}
