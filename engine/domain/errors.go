package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrMissingPatientID = errors.New("missing patient id")
	ErrMissingColumn    = errors.New("missing required column")
	ErrMissingConfig    = errors.New("missing configuration")
	ErrWipeNotConfirmed = errors.New("wipe not confirmed")
)

// ValidationError wraps a sentinel with the offending field.
type ValidationError struct {
	Field   string
	Value   string
	Line    int
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("validation: %s: %s (line %d, value=%q)", e.Wrapped, e.Field, e.Line, e.Value)
	}
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, line int, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Line: line, Wrapped: wrapped}
}

// ConfigError reports a required configuration key that is absent.
type ConfigError struct {
	Key    string
	Source string // where the key was expected, e.g. ".env file"
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s not found.", e.Key)
	}
	return fmt.Sprintf("%s not found in %s.", e.Key, e.Source)
}

func (e *ConfigError) Unwrap() error { return ErrMissingConfig }
