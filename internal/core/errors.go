package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an id that does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed create/update input for a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewValidationError wraps err as a validation failure on field.
func NewValidationError(field string, err error) error {
	return invalid(field, err)
}

// ConflictError is returned when a category cannot be deleted because
// transactions still reference it.
type ConflictError struct {
	Category string
	Count    int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("category %q is used by %d transaction(s)", e.Category, e.Count)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsConflict extracts a ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
