// Package services provides the application services the API surface is
// built on: submission and lifecycle commands, and status/result queries.
package services

import (
	"errors"
	"fmt"

	"github.com/codegenius/codegenius/pkg/orchestrator"
	"github.com/codegenius/codegenius/pkg/persistence"
)

// Business logic errors that map to client responses.
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidStatus    = errors.New("invalid workflow status")

	// Result access conflicts (409 Conflict).
	ErrResultNotReady    = errors.New("workflow result not ready")
	ErrWorkflowFailed    = errors.New("workflow failed")
	ErrWorkflowCancelled = errors.New("workflow was cancelled")

	// ErrNoDocument is returned when a completed workflow carries no rendered
	// documentation artifact.
	ErrNoDocument = errors.New("workflow produced no documentation artifact")

	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrWorkflowActive is returned when a delete targets a workflow that is
	// still pending or running (409 Conflict).
	ErrWorkflowActive = persistence.ErrWorkflowNotTerminal
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

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		orchestrator.IsValidationError(err)
}

// IsConflictError checks if an error is a lifecycle conflict that should
// return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrResultNotReady) ||
		errors.Is(err, ErrWorkflowFailed) ||
		errors.Is(err, ErrWorkflowCancelled) ||
		errors.Is(err, ErrWorkflowActive) ||
		errors.Is(err, orchestrator.ErrAlreadyTerminal)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) || errors.Is(err, ErrNoDocument)
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
