package configs

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is matched by every configuration validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// FieldError names the configuration field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func newFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidConfiguration
}
