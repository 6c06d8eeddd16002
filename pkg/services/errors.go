// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowTypeRequired = errors.New("workflow type is required")
	ErrEventRequired        = errors.New("transition event is required")
	ErrActorRequired        = errors.New("actor is required")

	// ErrInstanceNotFound is returned when a workflow instance is not found.
	ErrInstanceNotFound = persistence.ErrInstanceNotFound

	// ErrNotAnIncident is returned when a deadline query targets an
	// instance of a different workflow type.
	ErrNotAnIncident = errors.New("instance is not an incident workflow")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowTypeRequired) ||
		errors.Is(err, ErrEventRequired) ||
		errors.Is(err, ErrActorRequired)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
