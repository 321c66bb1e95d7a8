package model

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError identifies the field a record failed on.
type ValidationError struct {
	Entity string
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: invalid %s: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s %v: %s", e.Entity, e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a validation error for entity.field.
func NewValidationError(entity, field string, value any, reason string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Value: value, Reason: reason}
}

func invalid(entity, field string, value any, reason string) *ValidationError {
	return NewValidationError(entity, field, value, reason)
}
