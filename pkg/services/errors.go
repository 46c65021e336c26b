// Package services implements the template hierarchy and instance execution
// engine: CRUD managers, permission guard, ordering, tree loading, progress,
// and analytics.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrNameRequired         = errors.New("name is required")
	ErrInvalidTemplateType  = errors.New("invalid template type")
	ErrInvalidColor         = errors.New("color must be a 6-digit hex value")
	ErrInvalidElementType   = errors.New("unknown element type")
	ErrElementKeyRequired   = errors.New("element key is required")
	ErrInvalidElementConfig = errors.New("element config does not match its schema")
	ErrInvalidCondition     = errors.New("invalid condition expression")
	ErrUnknownDependency    = errors.New("dependency references an unknown task")
	ErrDependencyCycle      = errors.New("task dependencies contain a cycle")
	ErrInvalidStatusChange  = errors.New("invalid instance status transition")

	// Authorization errors (403 Forbidden).
	ErrNotAuthorized = errors.New("user is not authorized to modify this template")

	// Business logic conflicts (409 Conflict).
	ErrActiveInstances      = errors.New("cannot delete while active instances exist")
	ErrTemplateNotPublished = errors.New("template is not published")
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

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrInvalidTemplateType) ||
		errors.Is(err, ErrInvalidColor) ||
		errors.Is(err, ErrInvalidElementType) ||
		errors.Is(err, ErrElementKeyRequired) ||
		errors.Is(err, ErrInvalidElementConfig) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrUnknownDependency) ||
		errors.Is(err, ErrDependencyCycle) ||
		errors.Is(err, ErrInvalidStatusChange)
}

// IsAuthorizationError checks if an error should return HTTP 403.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsConflictError checks if an error is a business logic conflict that should
// return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrActiveInstances) ||
		errors.Is(err, ErrTemplateNotPublished)
}
