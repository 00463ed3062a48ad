package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/codegenius/codegenius/pkg/mocks"
	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
	"github.com/codegenius/codegenius/pkg/testutil"
)

// Helper function to create a basic janitor with mocks for testing.
func createTestJanitor() (*Janitor, *mocks.MockPersistence) {
	mockPersistence := &mocks.MockPersistence{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	janitor := NewJanitor("test-janitor", mockPersistence, logger, "0 * * * *", 24*time.Hour)

	return janitor, mockPersistence
}

// Helper function to create a terminal workflow for sweep tests.
func createExpiredWorkflow(status models.WorkflowStatus) *models.Workflow {
	return testutil.CreateTestWorkflow(
		testutil.WithStatus(status),
		testutil.WithUpdatedAt(time.Now().UTC().Add(-48*time.Hour)),
	)
}

func TestNewJanitor(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	require.NotNil(t, janitor)
	assert.Equal(t, "test-janitor", janitor.id)
	assert.Same(t, mockPersistence, janitor.persistence)
	assert.Equal(t, "0 * * * *", janitor.schedule)
	assert.Equal(t, 24*time.Hour, janitor.retention)
	assert.NotNil(t, janitor.logger)
}

func TestJanitor_Sweep_DeletesExpired(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	first := createExpiredWorkflow(models.WorkflowStatusCompleted)
	second := createExpiredWorkflow(models.WorkflowStatusFailed)

	mockPersistence.On("ListExpired", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*models.Workflow{first, second}, nil)
	mockPersistence.On("DeleteWorkflow", mock.Anything, first.ID).Return(nil)
	mockPersistence.On("DeleteWorkflow", mock.Anything, second.ID).Return(nil)

	deleted, err := janitor.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	mockPersistence.AssertExpectations(t)
}

func TestJanitor_Sweep_UsesRetentionCutoff(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	mockPersistence.On("ListExpired", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().UTC().Add(-24 * time.Hour)

		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return([]*models.Workflow{}, nil)

	deleted, err := janitor.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, deleted)
	mockPersistence.AssertExpectations(t)
}

func TestJanitor_Sweep_NothingExpired(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	mockPersistence.On("ListExpired", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*models.Workflow{}, nil)

	deleted, err := janitor.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, deleted)
	mockPersistence.AssertNotCalled(t, "DeleteWorkflow")
}

func TestJanitor_Sweep_ListError(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	mockPersistence.On("ListExpired", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(nil, assert.AnError)

	deleted, err := janitor.Sweep(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, deleted)
	mockPersistence.AssertNotCalled(t, "DeleteWorkflow")
}

func TestJanitor_Sweep_SkipsAlreadyRemoved(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	first := createExpiredWorkflow(models.WorkflowStatusCancelled)
	second := createExpiredWorkflow(models.WorkflowStatusCompleted)

	mockPersistence.On("ListExpired", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*models.Workflow{first, second}, nil)
	mockPersistence.On("DeleteWorkflow", mock.Anything, first.ID).
		Return(fmt.Errorf("failed to delete workflow: %w", persistence.ErrWorkflowNotFound))
	mockPersistence.On("DeleteWorkflow", mock.Anything, second.ID).Return(nil)

	deleted, err := janitor.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	mockPersistence.AssertExpectations(t)
}

func TestJanitor_Sweep_ContinuesAfterDeleteError(t *testing.T) {
	janitor, mockPersistence := createTestJanitor()

	first := createExpiredWorkflow(models.WorkflowStatusCompleted)
	second := createExpiredWorkflow(models.WorkflowStatusCompleted)

	mockPersistence.On("ListExpired", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*models.Workflow{first, second}, nil)
	mockPersistence.On("DeleteWorkflow", mock.Anything, first.ID).Return(assert.AnError)
	mockPersistence.On("DeleteWorkflow", mock.Anything, second.ID).Return(nil)

	deleted, err := janitor.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	mockPersistence.AssertExpectations(t)
}

func TestJanitor_Start_InvalidSchedule(t *testing.T) {
	mockPersistence := &mocks.MockPersistence{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	janitor := NewJanitor("test-janitor", mockPersistence, logger, "not-a-cron-expression", time.Hour)

	err := janitor.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sweep schedule")
}
