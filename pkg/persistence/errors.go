// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"context"
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrStageNotFound    = errors.New("stage not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrStepNotFound     = errors.New("step not found")
	ErrElementNotFound  = errors.New("element not found")
	ErrInstanceNotFound = errors.New("instance not found")
	ErrStepDataNotFound = errors.New("step data not found")

	// ErrBackendTimeout indicates the backing store reported a timeout.
	// Callers map this to a distinct, user-actionable failure instead of a
	// generic internal error.
	ErrBackendTimeout = errors.New("storage backend timed out")
)

// RepositoryError wraps storage errors with operation context.
type RepositoryError struct {
	Op         string // Operation being performed (e.g. "GetByID", "Save")
	Collection string // Collection the operation targeted
	ID         string // Entity ID if applicable
	Err        error
}

func (e *RepositoryError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Collection, e.ID, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func (e *RepositoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRepositoryError creates a repository error with context.
func NewRepositoryError(op, collection, id string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Collection: collection, ID: id, Err: err}
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrStageNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrElementNotFound) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrStepDataNotFound)
}

// IsTimeout checks if an error indicates the backing store timed out.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrBackendTimeout) || errors.Is(err, context.DeadlineExceeded)
}
