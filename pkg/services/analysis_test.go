package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/orchestrator"
	"github.com/codegenius/codegenius/pkg/persistence"
	"github.com/codegenius/codegenius/pkg/persistence/memory"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/codegenius/codegenius/pkg/registry"
)

type staticCapability struct {
	output map[string]any
}

func (c *staticCapability) Run(_ context.Context, _ *models.PhaseContext) (map[string]any, error) {
	return c.output, nil
}

type staticFactory struct {
	id     string
	output map[string]any
}

func (f *staticFactory) Create(_ map[string]any, _ *slog.Logger) (protocol.Capability, error) {
	return &staticCapability{output: f.output}, nil
}

func (f *staticFactory) ID() string   { return f.id }
func (f *staticFactory) Name() string { return f.id }

func (f *staticFactory) Description() string { return "test capability" }

func (f *staticFactory) Schema() map[string]any { return nil }

func newAnalysisService(t *testing.T) (*Analysis, persistence.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewPersistence()
	reg := registry.NewRegistry(logger)

	outputs := map[string]map[string]any{
		models.PhaseMapping:  {models.ScoreKey: 0.9},
		models.PhaseAnalysis: {models.ScoreKey: 0.8},
		models.PhaseDocumentation: {
			models.ScoreKey:       0.7,
			models.FinalOutputKey: "# generated",
		},
	}

	bindings := make(map[string]orchestrator.PhaseBinding, len(outputs))

	for _, phase := range models.Phases() {
		id := "static-" + phase
		reg.RegisterCapability(&staticFactory{id: id, output: outputs[phase]})
		bindings[phase] = orchestrator.PhaseBinding{CapabilityID: id, Config: map[string]any{}}
	}

	orch := orchestrator.NewOrchestrator(orchestrator.Config{
		MaxConcurrent: 2,
		Bindings:      bindings,
	}, store, reg, nil, logger)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		require.NoError(t, orch.Shutdown(ctx))
	})

	return NewAnalysis(orch, store), store
}

func awaitStatus(t *testing.T, store persistence.Persistence, workflowID string, status models.WorkflowStatus) {
	t.Helper()

	require.Eventually(t, func() bool {
		workflow, err := store.WorkflowByID(context.Background(), workflowID)

		return err == nil && workflow.Status == status
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAnalysis_SubmitCompletesAndDeletes(t *testing.T) {
	service, store := newAnalysisService(t)

	workflow, err := service.Submit(t.Context(), models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPending, workflow.Status)

	awaitStatus(t, store, workflow.ID, models.WorkflowStatusCompleted)

	require.NoError(t, service.Delete(t.Context(), workflow.ID))

	_, err = store.WorkflowByID(t.Context(), workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestAnalysis_Submit_Invalid(t *testing.T) {
	service, _ := newAnalysisService(t)

	_, err := service.Submit(t.Context(), models.AnalysisRequest{})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestAnalysis_Cancel_Terminal(t *testing.T) {
	service, store := newAnalysisService(t)

	workflow, err := service.Submit(t.Context(), models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	})
	require.NoError(t, err)

	awaitStatus(t, store, workflow.ID, models.WorkflowStatusCompleted)

	_, err = service.Cancel(t.Context(), workflow.ID)
	require.ErrorIs(t, err, orchestrator.ErrAlreadyTerminal)
	assert.True(t, IsConflictError(err))
}

func TestAnalysis_Cancel_NotFound(t *testing.T) {
	service, _ := newAnalysisService(t)

	_, err := service.Cancel(t.Context(), "16cf74de-9f3e-4f1c-bd73-0f2a8b5c7d01")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestAnalysis_Delete_ActiveWorkflow(t *testing.T) {
	service, store := newAnalysisService(t)

	workflow := seedWorkflow(t, store, models.WorkflowStatusRunning)

	err := service.Delete(t.Context(), workflow.ID)
	require.ErrorIs(t, err, ErrWorkflowActive)
	assert.True(t, IsConflictError(err))
}

func TestAnalysis_Delete_NotFound(t *testing.T) {
	service, _ := newAnalysisService(t)

	err := service.Delete(t.Context(), "31f92c2d-b9aa-4ba3-b2c6-97d3e2a5f4c8")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestAnalysis_HealthCheck(t *testing.T) {
	service, _ := newAnalysisService(t)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Equal(t, "Persistence layer is healthy", message)

	uninitialized := &Analysis{}

	message, healthy = uninitialized.HealthCheck(t.Context())
	assert.False(t, healthy)
	assert.Contains(t, message, "not initialized")
}
