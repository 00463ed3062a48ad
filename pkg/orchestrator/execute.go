package orchestrator

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/codegenius/codegenius/pkg/events"
	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/otelhelper"
	"github.com/codegenius/codegenius/pkg/persistence"
)

// Runs at or under the baseline get full processing efficiency; slower runs
// decay proportionally.
const efficiencyBaselineSeconds = 60.0

// execute drives one workflow through the phase sequence. It owns the
// workflow's terminal transition: exactly one of completed, failed or
// cancelled is written before the running slot is released.
//
// Store writes use a background context so a cancelled run context cannot
// block the terminal transition.
func (o *Orchestrator) execute(runCtx context.Context, workflowID string) {
	defer o.wg.Done()
	defer o.release(workflowID)

	runCtx, span := otelhelper.StartSpan(runCtx, o.tracer, "orchestrator.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.WorkerIDKey, o.config.WorkerID),
	)
	defer span.End()

	logger := o.logger.With("workflow_id", workflowID)
	phases := models.Phases()
	started := time.Now()

	workflow, err := o.persistence.UpdateWorkflow(context.Background(), workflowID, func(w *models.Workflow) error {
		w.Status = models.WorkflowStatusRunning
		w.CurrentPhase = phases[0]

		return nil
	})
	if err != nil {
		if persistence.IsInvalidTransition(err) || persistence.IsWorkflowNotFound(err) {
			logger.InfoContext(runCtx, "Workflow no longer pending, skipping execution", "error", err)

			return
		}

		logger.ErrorContext(runCtx, "Failed to claim workflow", "error", err)

		return
	}

	span.SetAttributes(
		attribute.String(otelhelper.RepositoryURLKey, workflow.Input.RepositoryURL),
		attribute.String(otelhelper.DepthKey, workflow.Input.Depth),
	)

	logger.InfoContext(runCtx, "Workflow execution started",
		"repository_url", workflow.Input.RepositoryURL, "branch", workflow.Input.Branch)

	event := events.WorkflowExecutionStarted{
		BaseEvent:     o.newEvent(events.WorkflowExecutionStartedEvent, workflowID),
		RepositoryURL: workflow.Input.RepositoryURL,
		Branch:        workflow.Input.Branch,
		Phases:        phases,
	}
	o.publish(context.Background(), workflowID, event)

	phaseCtx := models.NewPhaseContext(workflow)
	durations := make(map[string]float64, len(phases))

	for i, phase := range phases {
		select {
		case <-runCtx.Done():
			o.finishInterrupted(workflowID, phase, i, started, runCtx.Err())

			return
		default:
		}

		startedEvent := events.WorkflowPhaseStarted{
			BaseEvent:  o.newEvent(events.WorkflowPhaseStartedEvent, workflowID),
			Phase:      phase,
			PhaseIndex: i,
		}
		o.publish(context.Background(), workflowID, startedEvent)

		spanCtx, phaseSpan := otelhelper.StartSpan(runCtx, o.tracer, "orchestrator.phase "+phase,
			attribute.String(otelhelper.PhaseKey, phase),
			attribute.String(otelhelper.CapabilityIDKey, o.config.Bindings[phase].CapabilityID),
		)

		result := o.runner.RunPhase(spanCtx, phase, o.config.Bindings[phase], phaseCtx)
		durations[phase] = result.Duration.Seconds()

		// A dead run context means the workflow was cancelled or timed out
		// as a whole, regardless of how the phase itself ended.
		if runCtx.Err() != nil {
			otelhelper.SetError(phaseSpan, runCtx.Err())
			phaseSpan.End()
			o.finishInterrupted(workflowID, phase, i, started, runCtx.Err())

			return
		}

		if !result.Success {
			otelhelper.SetError(phaseSpan, errors.New(result.Message),
				attribute.String("error.kind", string(result.Kind)))
			phaseSpan.End()
			o.finishFailed(workflowID, result, i, started)

			return
		}

		phaseSpan.End()

		phaseCtx.Outputs[phase] = result.Output
		progress := float64(i+1) / float64(len(phases))

		logger.InfoContext(runCtx, "Phase finished",
			"phase", phase, "duration_ms", result.Duration.Milliseconds(), "progress", progress)

		if i < len(phases)-1 {
			next := phases[i+1]

			_, err = o.persistence.UpdateWorkflow(context.Background(), workflowID, func(w *models.Workflow) error {
				w.Progress = progress
				w.CurrentPhase = next

				return nil
			})
			if err != nil {
				logger.ErrorContext(runCtx, "Failed to checkpoint phase progress", "phase", phase, "error", err)

				return
			}
		}

		finishedEvent := events.WorkflowPhaseFinished{
			BaseEvent:  o.newEvent(events.WorkflowPhaseFinishedEvent, workflowID),
			Phase:      phase,
			PhaseIndex: i,
			DurationMs: result.Duration.Milliseconds(),
			Progress:   progress,
		}
		o.publish(context.Background(), workflowID, finishedEvent)

		if i == len(phases)-1 {
			o.finishCompleted(workflowID, phaseCtx, durations, started)
		}
	}
}

// finishCompleted aggregates phase outputs into the final result and writes
// the completed terminal state.
func (o *Orchestrator) finishCompleted(
	workflowID string,
	phaseCtx *models.PhaseContext,
	durations map[string]float64,
	started time.Time,
) {
	ctx := context.Background()
	elapsed := time.Since(started)
	result := buildAnalysisResult(phaseCtx, durations, elapsed)

	_, err := o.persistence.UpdateWorkflow(ctx, workflowID, func(w *models.Workflow) error {
		w.Status = models.WorkflowStatusCompleted
		w.Progress = 1
		w.CurrentPhase = ""
		w.Result = result

		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to complete workflow", "workflow_id", workflowID, "error", err)

		return
	}

	o.logger.InfoContext(ctx, "Workflow execution completed",
		"workflow_id", workflowID,
		"duration_ms", elapsed.Milliseconds(),
		"overall_score", result.Quality.OverallScore)

	event := events.WorkflowExecutionCompleted{
		BaseEvent:      o.newEvent(events.WorkflowExecutionCompletedEvent, workflowID),
		Status:         string(models.WorkflowStatusCompleted),
		DurationMs:     elapsed.Milliseconds(),
		PhasesExecuted: len(models.Phases()),
		OverallScore:   result.Quality.OverallScore,
	}
	o.publish(ctx, workflowID, event)
}

// finishFailed writes the failed terminal state after a phase error. Later
// phases never run.
func (o *Orchestrator) finishFailed(workflowID string, result models.PhaseResult, phaseIndex int, started time.Time) {
	ctx := context.Background()
	elapsed := time.Since(started)

	_, err := o.persistence.UpdateWorkflow(ctx, workflowID, func(w *models.Workflow) error {
		w.Status = models.WorkflowStatusFailed
		w.Error = &models.PhaseError{
			Phase:   result.Phase,
			Kind:    result.Kind,
			Message: result.Message,
		}

		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to record workflow failure", "workflow_id", workflowID, "error", err)

		return
	}

	o.logger.ErrorContext(ctx, "Workflow execution failed",
		"workflow_id", workflowID, "phase", result.Phase, "kind", result.Kind, "error", result.Message)

	phaseEvent := events.WorkflowPhaseFailed{
		BaseEvent:  o.newEvent(events.WorkflowPhaseFailedEvent, workflowID),
		Phase:      result.Phase,
		Kind:       result.Kind,
		Error:      result.Message,
		DurationMs: result.Duration.Milliseconds(),
	}
	o.publish(ctx, workflowID, phaseEvent)

	event := events.WorkflowExecutionFailed{
		BaseEvent:  o.newEvent(events.WorkflowExecutionFailedEvent, workflowID),
		Status:     string(models.WorkflowStatusFailed),
		DurationMs: elapsed.Milliseconds(),
		Error: events.WorkflowError{
			Phase:   result.Phase,
			Kind:    result.Kind,
			Message: result.Message,
		},
		PhasesExecuted: phaseIndex,
	}
	o.publish(ctx, workflowID, event)
}

// finishInterrupted writes the cancelled terminal state after the run
// context died, either by cancellation or by the workflow timeout.
func (o *Orchestrator) finishInterrupted(
	workflowID string,
	phase string,
	phasesExecuted int,
	started time.Time,
	cause error,
) {
	ctx := context.Background()
	elapsed := time.Since(started)

	_, err := o.persistence.UpdateWorkflow(ctx, workflowID, func(w *models.Workflow) error {
		w.Status = models.WorkflowStatusCancelled
		w.CurrentPhase = ""

		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to record workflow cancellation", "workflow_id", workflowID, "error", err)

		return
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		o.logger.ErrorContext(ctx, "Workflow timed out",
			"workflow_id", workflowID, "stuck_phase", phase, "duration_ms", elapsed.Milliseconds())

		event := events.WorkflowExecutionTimeout{
			BaseEvent:      o.newEvent(events.WorkflowExecutionTimeoutEvent, workflowID),
			Status:         string(models.WorkflowStatusCancelled),
			DurationMs:     elapsed.Milliseconds(),
			TimeoutLimitMs: o.config.WorkflowTimeout.Milliseconds(),
			StuckPhase:     phase,
		}
		o.publish(ctx, workflowID, event)

		return
	}

	o.logger.InfoContext(ctx, "Workflow cancelled",
		"workflow_id", workflowID, "phases_executed", phasesExecuted)

	event := events.WorkflowExecutionCancelled{
		BaseEvent:      o.newEvent(events.WorkflowExecutionCancelledEvent, workflowID),
		Status:         string(models.WorkflowStatusCancelled),
		DurationMs:     elapsed.Milliseconds(),
		Reason:         "cancelled during execution",
		PhasesExecuted: phasesExecuted,
	}
	o.publish(ctx, workflowID, event)
}

// buildAnalysisResult folds the per-phase outputs into the final result and
// derives the quality metrics from the scores the capabilities reported.
func buildAnalysisResult(
	phaseCtx *models.PhaseContext,
	durations map[string]float64,
	elapsed time.Duration,
) *models.AnalysisResult {
	quality := models.QualityMetrics{
		RepositoryScore:    scoreOf(phaseCtx.Outputs[models.PhaseMapping]),
		AnalysisScore:      scoreOf(phaseCtx.Outputs[models.PhaseAnalysis]),
		DocumentationScore: scoreOf(phaseCtx.Outputs[models.PhaseDocumentation]),
	}
	quality.OverallScore = (quality.RepositoryScore + quality.AnalysisScore + quality.DocumentationScore) / 3

	seconds := elapsed.Seconds()
	if seconds <= efficiencyBaselineSeconds {
		quality.ProcessingEfficiency = 1
	} else {
		quality.ProcessingEfficiency = math.Min(1, efficiencyBaselineSeconds/seconds)
	}

	return &models.AnalysisResult{
		Repository:     phaseCtx.Outputs[models.PhaseMapping],
		Analysis:       phaseCtx.Outputs[models.PhaseAnalysis],
		Documentation:  phaseCtx.Outputs[models.PhaseDocumentation],
		Quality:        quality,
		ProcessingTime: seconds,
		PhaseDurations: durations,
	}
}

func scoreOf(output map[string]any) float64 {
	if output == nil {
		return 0
	}

	if score, ok := output[models.ScoreKey].(float64); ok {
		return score
	}

	return 0
}
