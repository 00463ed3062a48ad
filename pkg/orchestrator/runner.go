package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/protocol"
	"github.com/codegenius/codegenius/pkg/registry"
)

// PhaseBinding names the capability that executes a phase and the
// configuration it is created with.
type PhaseBinding struct {
	CapabilityID string         `json:"capability_id"`
	Config       map[string]any `json:"config"`
}

// DefaultPhaseBindings maps every pipeline phase to its built-in capability.
func DefaultPhaseBindings() map[string]PhaseBinding {
	return map[string]PhaseBinding{
		models.PhaseMapping:       {CapabilityID: "repo-mapper", Config: map[string]any{}},
		models.PhaseAnalysis:      {CapabilityID: "code-analyzer", Config: map[string]any{}},
		models.PhaseDocumentation: {CapabilityID: "doc-writer", Config: map[string]any{}},
	}
}

// PhaseRunner executes a single phase through its bound capability. It never
// panics and never touches workflow records: every outcome, including
// timeouts and recovered panics, is normalized into a models.PhaseResult for
// the orchestrator to act on.
type PhaseRunner struct {
	registry *registry.Registry
	timeout  time.Duration
	logger   *slog.Logger
}

func NewPhaseRunner(reg *registry.Registry, timeout time.Duration, logger *slog.Logger) *PhaseRunner {
	return &PhaseRunner{
		registry: reg,
		timeout:  timeout,
		logger:   logger.With("module", "phase_runner"),
	}
}

type phaseOutcome struct {
	output   map[string]any
	err      error
	panicked bool
}

// RunPhase creates the bound capability and runs it under the configured
// per-phase timeout. The capability runs on its own goroutine so a stuck
// implementation cannot wedge the pipeline; once the phase context expires
// the runner returns without waiting for it.
func (r *PhaseRunner) RunPhase(ctx context.Context, phase string, binding PhaseBinding, phaseCtx *models.PhaseContext) models.PhaseResult {
	started := time.Now()

	result := models.PhaseResult{Phase: phase}

	capability, err := r.registry.CreateCapability(binding.CapabilityID, binding.Config)
	if err != nil {
		result.Kind = models.ErrorKindCapability
		result.Message = fmt.Sprintf("capability %s unavailable: %v", binding.CapabilityID, err)
		result.Duration = time.Since(started)

		return result
	}

	runCtx := ctx

	if r.timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	outcomeCh := make(chan phaseOutcome, 1)

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				outcomeCh <- phaseOutcome{
					err:      fmt.Errorf("capability panicked: %v", recovered),
					panicked: true,
				}
			}
		}()

		output, runErr := capability.Run(runCtx, phaseCtx)
		outcomeCh <- phaseOutcome{output: output, err: runErr}
	}()

	select {
	case outcome := <-outcomeCh:
		result.Duration = time.Since(started)

		if outcome.panicked {
			result.Kind = models.ErrorKindPanic
			result.Message = outcome.err.Error()

			r.logger.ErrorContext(ctx, "Capability panicked",
				"phase", phase, "capability_id", binding.CapabilityID, "error", outcome.err)

			return result
		}

		if outcome.err != nil {
			result.Kind, result.Message = classifyError(outcome.err)

			return result
		}

		result.Success = true
		result.Output = outcome.output

		return result
	case <-runCtx.Done():
		result.Duration = time.Since(started)
		result.Kind, result.Message = classifyError(runCtx.Err())

		return result
	}
}

// classifyError maps a capability error onto the error taxonomy. Context
// errors are checked first so wrapped deadline failures from HTTP clients and
// drivers land in the timeout bucket.
func classifyError(err error) (models.ErrorKind, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorKindTimeout, err.Error()
	case errors.Is(err, context.Canceled):
		return models.ErrorKindCancelled, err.Error()
	}

	invalidOutput := &protocol.InvalidOutputError{}
	if errors.As(err, &invalidOutput) {
		return models.ErrorKindInvalidOutput, err.Error()
	}

	return models.ErrorKindCapability, err.Error()
}
