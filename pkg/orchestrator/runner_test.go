package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/orchestrator"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/codegenius/codegenius/pkg/registry"
)

func newTestRunner(t *testing.T, timeout time.Duration, run phaseFunc) (*orchestrator.PhaseRunner, orchestrator.PhaseBinding) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.NewRegistry(logger)
	reg.RegisterCapability(&stubFactory{id: "stub", run: run})

	binding := orchestrator.PhaseBinding{CapabilityID: "stub", Config: map[string]any{}}

	return orchestrator.NewPhaseRunner(reg, timeout, logger), binding
}

func testPhaseContext() *models.PhaseContext {
	return models.NewPhaseContext(models.NewWorkflow("20a1a3f5-4f7a-4c2d-93d1-5b4b0c3f9b7e", models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
	}))
}

func TestRunPhase_Success(t *testing.T) {
	runner, binding := newTestRunner(t, 0, succeedWith(map[string]any{
		models.ScoreKey: 0.9,
		"total_files":   12,
	}))

	result := runner.RunPhase(context.Background(), models.PhaseMapping, binding, testPhaseContext())

	assert.True(t, result.Success)
	assert.Equal(t, models.PhaseMapping, result.Phase)
	assert.Equal(t, 12, result.Output["total_files"])
	assert.Empty(t, result.Kind)
	assert.Empty(t, result.Message)
	assert.Positive(t, result.Duration)
}

func TestRunPhase_CapabilityError(t *testing.T) {
	runner, binding := newTestRunner(t, 0, func(_ context.Context, _ *models.PhaseContext) (map[string]any, error) {
		return nil, errors.New("repository checkout not available")
	})

	result := runner.RunPhase(context.Background(), models.PhaseMapping, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindCapability, result.Kind)
	assert.Contains(t, result.Message, "repository checkout not available")
}

func TestRunPhase_InvalidOutput(t *testing.T) {
	runner, binding := newTestRunner(t, 0, func(_ context.Context, _ *models.PhaseContext) (map[string]any, error) {
		return nil, protocol.NewInvalidOutputError("stub", "mapping phase output not available")
	})

	result := runner.RunPhase(context.Background(), models.PhaseAnalysis, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindInvalidOutput, result.Kind)
	assert.Contains(t, result.Message, "mapping phase output not available")
}

func TestRunPhase_Timeout(t *testing.T) {
	done := make(chan struct{})

	runner, binding := newTestRunner(t, 30*time.Millisecond, func(_ context.Context, _ *models.PhaseContext) (map[string]any, error) {
		defer close(done)

		// Deliberately ignores cancellation.
		time.Sleep(150 * time.Millisecond)

		return map[string]any{}, nil
	})

	result := runner.RunPhase(context.Background(), models.PhaseMapping, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindTimeout, result.Kind)
	assert.Less(t, result.Duration, 150*time.Millisecond, "runner must not wait for a stuck capability")

	<-done
}

func TestRunPhase_TimeoutFromCapabilityError(t *testing.T) {
	runner, binding := newTestRunner(t, 30*time.Millisecond, func(ctx context.Context, _ *models.PhaseContext) (map[string]any, error) {
		<-ctx.Done()

		return nil, fmt.Errorf("fetching repository metadata: %w", ctx.Err())
	})

	result := runner.RunPhase(context.Background(), models.PhaseMapping, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindTimeout, result.Kind)
}

func TestRunPhase_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, binding := newTestRunner(t, 0, func(ctx context.Context, _ *models.PhaseContext) (map[string]any, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})

	result := runner.RunPhase(ctx, models.PhaseMapping, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindCancelled, result.Kind)
}

func TestRunPhase_PanicRecovered(t *testing.T) {
	runner, binding := newTestRunner(t, 0, func(_ context.Context, _ *models.PhaseContext) (map[string]any, error) {
		panic("nil dereference in capability")
	})

	result := runner.RunPhase(context.Background(), models.PhaseMapping, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindPanic, result.Kind)
	assert.Contains(t, result.Message, "nil dereference in capability")
}

func TestRunPhase_UnknownCapability(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := orchestrator.NewPhaseRunner(registry.NewRegistry(logger), 0, logger)

	binding := orchestrator.PhaseBinding{CapabilityID: "missing", Config: map[string]any{}}
	result := runner.RunPhase(context.Background(), models.PhaseMapping, binding, testPhaseContext())

	assert.False(t, result.Success)
	assert.Equal(t, models.ErrorKindCapability, result.Kind)
	assert.Contains(t, result.Message, "not registered")
}

func TestDefaultPhaseBindings_CoverEveryPhase(t *testing.T) {
	bindings := orchestrator.DefaultPhaseBindings()

	require.Len(t, bindings, len(models.Phases()))

	for _, phase := range models.Phases() {
		binding, ok := bindings[phase]
		require.True(t, ok, "phase %s has no binding", phase)
		assert.NotEmpty(t, binding.CapabilityID)
	}
}
