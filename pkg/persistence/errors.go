// Package persistence provides standardized error types for store operations.
package persistence

import (
	"errors"
	"fmt"

	"github.com/codegenius/codegenius/pkg/models"
)

// Standard persistence error types that all implementations use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyExists indicates a workflow with the same identifier already exists.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")

	// ErrInvalidTransition indicates a mutation violated the workflow lifecycle
	// state machine. External callers must never be able to trigger it; seeing
	// one means an orchestrator bug.
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrWorkflowNotTerminal indicates a delete was requested for a workflow
	// that is still pending or running.
	ErrWorkflowNotTerminal = errors.New("workflow not terminal")
)

// WorkflowError wraps workflow-related store errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "WorkflowByID", "Delete")
	WorkflowID string // Workflow ID if applicable
	Err        error  // Underlying error
	Message    string // Additional context message
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, e.WorkflowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// TransitionError reports a mutation rejected by the lifecycle state
// machine. It matches ErrInvalidTransition under errors.Is.
type TransitionError struct {
	WorkflowID string
	From       models.WorkflowStatus
	To         models.WorkflowStatus
	Reason     string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition for workflow %s: %s -> %s: %s", e.WorkflowID, e.From, e.To, e.Reason)
	}

	return fmt.Sprintf("invalid transition for workflow %s: %s -> %s", e.WorkflowID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowAlreadyExists checks if an error indicates an id collision.
func IsWorkflowAlreadyExists(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyExists)
}

// IsInvalidTransition checks if an error indicates a rejected lifecycle mutation.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsWorkflowNotTerminal checks if an error indicates a delete on a live workflow.
func IsWorkflowNotTerminal(err error) bool {
	return errors.Is(err, ErrWorkflowNotTerminal)
}
