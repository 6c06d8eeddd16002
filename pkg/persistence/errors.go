// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrInstanceNotFound indicates no workflow instance exists for the id.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrInstanceAlreadyExists indicates an instance with the same id exists.
	ErrInstanceAlreadyExists = errors.New("workflow instance already exists")

	// ErrRevisionConflict indicates the instance changed since it was loaded.
	// The caller should re-read and retry rather than overwrite.
	ErrRevisionConflict = errors.New("instance revision conflict")
)

// InstanceError wraps instance storage errors with operation context.
type InstanceError struct {
	Op         string
	InstanceID string
	Err        error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInstanceError creates a new instance error with context.
func NewInstanceError(op, instanceID string, err error) *InstanceError {
	return &InstanceError{
		Op:         op,
		InstanceID: instanceID,
		Err:        err,
	}
}

// IsInstanceNotFound checks if an error indicates a missing instance.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

// IsInstanceAlreadyExists checks if an error indicates a duplicate create.
func IsInstanceAlreadyExists(err error) bool {
	return errors.Is(err, ErrInstanceAlreadyExists)
}

// IsRevisionConflict checks if an error indicates a lost-update conflict.
func IsRevisionConflict(err error) bool {
	return errors.Is(err, ErrRevisionConflict)
}
