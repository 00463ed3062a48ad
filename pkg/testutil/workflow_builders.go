// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/codegenius/codegenius/pkg/models"
)

// CreateTestRequest creates an analysis request with defaults applied that
// can be overridden.
func CreateTestRequest(overrides ...func(*models.AnalysisRequest)) models.AnalysisRequest {
	request := models.AnalysisRequest{
		RepositoryURL: "https://github.com/acme/widget",
		Branch:        "main",
		Depth:         models.DepthStandard,
		Formats:       []string{models.FormatMarkdown},
	}

	for _, override := range overrides {
		override(&request)
	}

	return request
}

// WithRepositoryURL sets the repository URL on the request.
func WithRepositoryURL(url string) func(*models.AnalysisRequest) {
	return func(r *models.AnalysisRequest) {
		r.RepositoryURL = url
	}
}

// WithDepth sets the analysis depth on the request.
func WithDepth(depth string) func(*models.AnalysisRequest) {
	return func(r *models.AnalysisRequest) {
		r.Depth = depth
	}
}

// CreateTestWorkflow creates a pending workflow with default input that can
// be reshaped through overrides.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := models.NewWorkflow(uuid.New().String(), CreateTestRequest())

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithID sets the workflow ID.
func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithInput replaces the workflow input.
func WithInput(input models.AnalysisRequest) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Input = input
	}
}

// WithStatus forces the lifecycle status without walking transitions.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithProgress sets the progress fraction.
func WithProgress(progress float64) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Progress = progress
	}
}

// WithCurrentPhase sets the phase the workflow is executing.
func WithCurrentPhase(phase string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.CurrentPhase = phase
	}
}

// WithUpdatedAt backdates or advances the last modification time.
func WithUpdatedAt(updatedAt time.Time) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.UpdatedAt = updatedAt
	}
}

// WithResult marks the workflow completed with the given result.
func WithResult(result *models.AnalysisResult) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = models.WorkflowStatusCompleted
		w.Progress = 1.0
		w.CurrentPhase = ""
		w.Result = result
	}
}

// WithError marks the workflow failed with the given phase error.
func WithError(phaseErr *models.PhaseError) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = models.WorkflowStatusFailed
		w.CurrentPhase = ""
		w.Error = phaseErr
	}
}

// CreateCompletedWorkflow creates a completed workflow with a plausible
// result payload.
func CreateCompletedWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	result := &models.AnalysisResult{
		Repository: map[string]any{"files": float64(42), models.ScoreKey: 0.9},
		Analysis:   map[string]any{models.ScoreKey: 0.8},
		Documentation: map[string]any{
			models.ScoreKey:       0.7,
			models.FinalOutputKey: "# widget\n\nGenerated documentation.\n",
		},
		Quality: models.QualityMetrics{
			RepositoryScore:    0.9,
			AnalysisScore:      0.8,
			DocumentationScore: 0.7,
			OverallScore:       0.8,
		},
		ProcessingTime: 1.5,
	}

	base := []func(*models.Workflow){WithResult(result)}

	return CreateTestWorkflow(append(base, overrides...)...)
}
