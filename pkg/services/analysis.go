package services

import (
	"context"
	"fmt"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/orchestrator"
	"github.com/codegenius/codegenius/pkg/persistence"
)

// Analysis is the command side of the API: it submits workflows to the
// orchestrator and drives their lifecycle.
type Analysis struct {
	orchestrator *orchestrator.Orchestrator
	persistence  persistence.Persistence
}

// NewAnalysis creates a new analysis service.
func NewAnalysis(orch *orchestrator.Orchestrator, store persistence.Persistence) *Analysis {
	return &Analysis{
		orchestrator: orch,
		persistence:  store,
	}
}

// Submit queues a new analysis workflow and returns its pending record.
func (a *Analysis) Submit(ctx context.Context, request models.AnalysisRequest) (*models.Workflow, error) {
	return a.orchestrator.Submit(ctx, request)
}

// Cancel stops a pending or running workflow. Queued workflows go terminal
// immediately; running ones are cancelled cooperatively.
func (a *Analysis) Cancel(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return a.orchestrator.Cancel(ctx, workflowID)
}

// Delete removes a terminal workflow record. Deleting a pending or running
// workflow is a conflict; callers cancel first.
func (a *Analysis) Delete(ctx context.Context, workflowID string) error {
	err := a.persistence.DeleteWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// HealthCheck checks the health of the persistence layer.
func (a *Analysis) HealthCheck(ctx context.Context) (string, bool) {
	if a.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := a.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}
