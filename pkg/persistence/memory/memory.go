// Package memory provides an in-memory persistence implementation, used by
// tests and single-process runs that need no durability.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
)

// Persistence implements persistence.Persistence over a mutex-guarded map.
// Records are deep-copied on the way in and out, so callers never alias
// store-internal state.
type Persistence struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows: make(map[string]*models.Workflow),
	}
}

func (p *Persistence) CreateWorkflow(_ context.Context, workflow *models.Workflow) error {
	if err := persistence.ValidateNewWorkflow(workflow); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workflows[workflow.ID]; exists {
		return persistence.NewWorkflowError("CreateWorkflow", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	p.workflows[workflow.ID] = workflow.Clone()

	return nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow, exists := p.workflows[id]
	if !exists {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow.Clone(), nil
}

func (p *Persistence) UpdateWorkflow(_ context.Context, id string, mutate func(*models.Workflow) error) (*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, exists := p.workflows[id]
	if !exists {
		return nil, persistence.NewWorkflowError("UpdateWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	updated, err := persistence.ApplyMutation(stored, mutate)
	if err != nil {
		return nil, err
	}

	p.workflows[id] = updated

	return updated.Clone(), nil
}

func (p *Persistence) ListWorkflows(_ context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	if err := persistence.NormalizeListOptions(&opts); err != nil {
		return nil, err
	}

	p.mu.RLock()

	all := make([]*models.Workflow, 0, len(p.workflows))
	for _, workflow := range p.workflows {
		all = append(all, workflow.Clone())
	}

	p.mu.RUnlock()

	filtered := persistence.FilterWorkflows(all, opts.Status)
	persistence.SortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	return persistence.PageWorkflows(filtered, opts.Limit, opts.Offset), nil
}

func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, exists := p.workflows[id]
	if !exists {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	if !workflow.Terminal() {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotTerminal)
	}

	delete(p.workflows, id)

	return nil
}

func (p *Persistence) ListExpired(_ context.Context, olderThan time.Time) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	expired := make([]*models.Workflow, 0)

	for _, workflow := range p.workflows {
		if workflow.Terminal() && workflow.UpdatedAt.Before(olderThan) {
			expired = append(expired, workflow.Clone())
		}
	}

	return expired, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
