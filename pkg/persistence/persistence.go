// Package persistence provides the storage abstraction for workflow records.
package persistence

import (
	"context"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
)

// ListOptions filters and paginates workflow listings.
type ListOptions struct {
	Status    *models.WorkflowStatus
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// WorkflowListResult carries one page of workflows plus paging metadata.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

// Persistence is the authoritative store for workflow records.
//
// UpdateWorkflow is the only mutation path: it must be atomic with respect
// to concurrent callers and must reject mutations that violate the
// lifecycle invariants with ErrInvalidTransition, leaving the record
// untouched. Reads return snapshots that never alias store-internal state.
type Persistence interface {
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, mutate func(*models.Workflow) error) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, opts ListOptions) (*WorkflowListResult, error)
	DeleteWorkflow(ctx context.Context, id string) error
	ListExpired(ctx context.Context, olderThan time.Time) ([]*models.Workflow, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
