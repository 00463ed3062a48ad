package persistence

import (
	"fmt"
	"reflect"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
)

// ValidateNewWorkflow checks that a record is insertable: a pending workflow
// with zero progress and no terminal payloads.
func ValidateNewWorkflow(workflow *models.Workflow) error {
	if workflow == nil || workflow.ID == "" {
		return fmt.Errorf("workflow id is required")
	}

	if workflow.Status != models.WorkflowStatusPending {
		return &TransitionError{
			WorkflowID: workflow.ID,
			From:       workflow.Status,
			To:         workflow.Status,
			Reason:     "new workflows must be pending",
		}
	}

	if workflow.Progress != 0 {
		return &TransitionError{
			WorkflowID: workflow.ID,
			From:       workflow.Status,
			To:         workflow.Status,
			Reason:     "new workflows start at zero progress",
		}
	}

	if workflow.Result != nil || workflow.Error != nil {
		return &TransitionError{
			WorkflowID: workflow.ID,
			From:       workflow.Status,
			To:         workflow.Status,
			Reason:     "new workflows cannot carry terminal payloads",
		}
	}

	return nil
}

// ApplyMutation clones stored, applies mutate to the clone, validates the
// outcome against the lifecycle invariants and stamps updated_at. Backends
// persist the returned record only when the error is nil; stored is never
// modified, so a rejected mutation leaves the record untouched.
func ApplyMutation(stored *models.Workflow, mutate func(*models.Workflow) error) (*models.Workflow, error) {
	updated := stored.Clone()

	if err := mutate(updated); err != nil {
		return nil, err
	}

	if err := ValidateMutation(stored, updated); err != nil {
		return nil, err
	}

	updated.UpdatedAt = time.Now().UTC()

	return updated, nil
}

// ValidateMutation enforces the lifecycle invariants between a stored
// snapshot and its mutated successor.
func ValidateMutation(before, after *models.Workflow) error {
	transition := func(reason string) error {
		return &TransitionError{
			WorkflowID: before.ID,
			From:       before.Status,
			To:         after.Status,
			Reason:     reason,
		}
	}

	if before.Status.Terminal() {
		return transition("terminal workflows are immutable")
	}

	if after.ID != before.ID {
		return transition("id is immutable")
	}

	if !after.CreatedAt.Equal(before.CreatedAt) {
		return transition("created_at is immutable")
	}

	if !reflect.DeepEqual(after.Input, before.Input) {
		return transition("input is immutable")
	}

	if before.Status != after.Status && !before.Status.CanTransitionTo(after.Status) {
		return transition("")
	}

	if after.Progress < 0 || after.Progress > 1 {
		return transition("progress out of range")
	}

	if after.Progress < before.Progress {
		return transition("progress cannot decrease")
	}

	switch after.Status {
	case models.WorkflowStatusCompleted:
		if after.Result == nil {
			return transition("completed workflows require a result")
		}

		if after.Error != nil {
			return transition("completed workflows cannot carry an error")
		}

		if after.Progress != 1 {
			return transition("completed workflows require progress 1.0")
		}
	case models.WorkflowStatusFailed:
		if after.Error == nil {
			return transition("failed workflows require an error")
		}

		if after.Result != nil {
			return transition("failed workflows cannot carry a result")
		}
	default:
		// pending, running and cancelled never carry terminal payloads.
		if after.Result != nil || after.Error != nil {
			return transition("result and error are reserved for terminal workflows")
		}

		if after.Progress == 1 {
			return transition("progress 1.0 is reserved for completed workflows")
		}
	}

	return nil
}
