package persistence

import (
	"fmt"
	"sort"

	"github.com/codegenius/codegenius/pkg/models"
)

// Paging defaults shared by all backends.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Sort fields are allowlisted so SQL backends can interpolate them safely.
var allowedSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
}

// NormalizeListOptions applies paging defaults and validates sort parameters
// against the allowlist.
func NormalizeListOptions(opts *ListOptions) error {
	if opts.Limit <= 0 || opts.Limit > MaxListLimit {
		opts.Limit = DefaultListLimit
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	if !allowedSortFields[opts.SortBy] {
		return fmt.Errorf("invalid sort field: %s", opts.SortBy)
	}

	if opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		return fmt.Errorf("invalid sort order: %s", opts.SortOrder)
	}

	return nil
}

// FilterWorkflows returns the workflows matching the status filter.
func FilterWorkflows(workflows []*models.Workflow, status *models.WorkflowStatus) []*models.Workflow {
	if status == nil {
		return workflows
	}

	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.Status == *status {
			filtered = append(filtered, workflow)
		}
	}

	return filtered
}

// SortWorkflows sorts workflows in place by the allowlisted field and order.
func SortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.Slice(workflows, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = workflows[i].UpdatedAt.Before(workflows[j].UpdatedAt)
		case "status":
			less = workflows[i].Status < workflows[j].Status
		default:
			less = workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// PageWorkflows slices one page out of the sorted set and fills paging
// metadata.
func PageWorkflows(workflows []*models.Workflow, limit, offset int) *WorkflowListResult {
	totalCount := int64(len(workflows))

	if offset >= len(workflows) {
		return &WorkflowListResult{
			Workflows:   make([]*models.Workflow, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}
	}

	end := offset + limit
	if end > len(workflows) {
		end = len(workflows)
	}

	return &WorkflowListResult{
		Workflows:   workflows[offset:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(workflows),
	}
}
