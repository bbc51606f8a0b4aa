package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/techcadd/exam-admin-service/internal/repositories"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

// Sentinel not-found errors, one per aggregate
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrExamNotFound   = errors.New("exam not found")
)

// ValidationError represents a single field-level business rule failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation failures
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// PreconditionError marks an operation rejected because the entity is in
// the wrong state for it, distinct from bad input.
type PreconditionError struct {
	Entity string `json:"entity"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

func NewPreconditionError(entity, state, reason string) *PreconditionError {
	return &PreconditionError{
		Entity: entity,
		State:  state,
		Reason: reason,
	}
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s in state %s: %s", e.Entity, e.State, e.Reason)
}

// IsNotFound reports whether the error means a missing record, mapped to
// HTTP 404 by the handlers.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCourseNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrExamNotFound) {
		return true
	}
	return repositories.IsNotFoundError(err)
}

// IsValidation reports whether the error is a validation failure, mapped
// to HTTP 400 by the handlers.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var single *ValidationError
	if errors.As(err, &single) {
		return true
	}
	var many ValidationErrors
	if errors.As(err, &many) {
		return true
	}
	var structErrs validator.ValidationErrors
	return errors.As(err, &structErrs)
}

// IsPrecondition reports whether the error is a state precondition
// failure, mapped to HTTP 409 by the handlers.
func IsPrecondition(err error) bool {
	if err == nil {
		return false
	}
	var pre *PreconditionError
	return errors.As(err, &pre)
}
