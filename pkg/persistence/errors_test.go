package persistence_test

import (
	"errors"
	"testing"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrWorkflowNotFound)
		assert.NotNil(t, persistence.ErrWorkflowAlreadyExists)
		assert.NotNil(t, persistence.ErrInvalidTransition)
		assert.NotNil(t, persistence.ErrWorkflowNotTerminal)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		notFound := persistence.NewWorkflowError("WorkflowByID", "workflow-123", persistence.ErrWorkflowNotFound)
		notTerminal := persistence.NewWorkflowError("Delete", "workflow-123", persistence.ErrWorkflowNotTerminal)

		assert.True(t, persistence.IsWorkflowNotFound(notFound))
		assert.True(t, persistence.IsWorkflowNotTerminal(notTerminal))

		assert.True(t, errors.Is(notFound, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(notTerminal, persistence.ErrWorkflowNotTerminal))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("UpdateWorkflow", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "UpdateWorkflow")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("transition error matches the sentinel", func(t *testing.T) {
		err := &persistence.TransitionError{
			WorkflowID: "workflow-123",
			From:       models.WorkflowStatusRunning,
			To:         models.WorkflowStatusPending,
			Reason:     "going backwards",
		}

		assert.True(t, persistence.IsInvalidTransition(err))
		assert.True(t, errors.Is(err, persistence.ErrInvalidTransition))
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "running -> pending")
		assert.Contains(t, err.Error(), "going backwards")
	})
}
