package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
)

// Status is the query side of the API: point reads, progress reports,
// result access and listings. It never mutates workflow records.
type Status struct {
	persistence persistence.Persistence
}

// NewStatus creates a new status service.
func NewStatus(store persistence.Persistence) *Status {
	return &Status{
		persistence: store,
	}
}

// StatusReport is the progress summary served while a workflow is live and
// after it finishes.
type StatusReport struct {
	ID           string                `json:"id"`
	Status       models.WorkflowStatus `json:"status"`
	Progress     float64               `json:"progress"`
	CurrentPhase string                `json:"current_phase,omitempty"`
	Error        *models.PhaseError    `json:"error,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// FetchByID retrieves a workflow by its ID.
func (s *Status) FetchByID(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return s.persistence.WorkflowByID(ctx, workflowID)
}

// Report returns the progress summary for a workflow.
func (s *Status) Report(ctx context.Context, workflowID string) (*StatusReport, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return &StatusReport{
		ID:           workflow.ID,
		Status:       workflow.Status,
		Progress:     workflow.Progress,
		CurrentPhase: workflow.CurrentPhase,
		Error:        workflow.Error,
		CreatedAt:    workflow.CreatedAt,
		UpdatedAt:    workflow.UpdatedAt,
	}, nil
}

// Result returns the aggregated analysis result of a completed workflow.
// Live workflows return ErrResultNotReady; failed and cancelled ones return
// the matching conflict error so callers can tell the cases apart.
func (s *Status) Result(ctx context.Context, workflowID string) (*models.AnalysisResult, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	switch workflow.Status {
	case models.WorkflowStatusCompleted:
		if workflow.Result == nil {
			return nil, fmt.Errorf("completed workflow %s has no result", workflowID)
		}

		return workflow.Result, nil
	case models.WorkflowStatusPending, models.WorkflowStatusRunning:
		return nil, &ServiceError{
			Op:      "Result",
			Code:    "RESULT_NOT_READY",
			Message: fmt.Sprintf("workflow %s is %s at %.0f%% progress", workflowID, workflow.Status, workflow.Progress*100),
			Err:     ErrResultNotReady,
		}
	case models.WorkflowStatusFailed:
		message := "workflow failed"
		if workflow.Error != nil {
			message = fmt.Sprintf("workflow failed during %s: %s", workflow.Error.Phase, workflow.Error.Message)
		}

		return nil, &ServiceError{
			Op:      "Result",
			Code:    "WORKFLOW_FAILED",
			Message: message,
			Err:     ErrWorkflowFailed,
		}
	default:
		return nil, &ServiceError{
			Op:      "Result",
			Code:    "WORKFLOW_CANCELLED",
			Message: fmt.Sprintf("workflow %s was cancelled before producing a result", workflowID),
			Err:     ErrWorkflowCancelled,
		}
	}
}

// Document returns the rendered documentation artifact of a completed
// workflow.
func (s *Status) Document(ctx context.Context, workflowID string) (string, error) {
	result, err := s.Result(ctx, workflowID)
	if err != nil {
		return "", err
	}

	document := result.FinalOutput()
	if document == "" {
		return "", &ServiceError{
			Op:      "Document",
			Code:    "NO_DOCUMENT",
			Message: fmt.Sprintf("workflow %s completed without a documentation artifact", workflowID),
			Err:     ErrNoDocument,
		}
	}

	return document, nil
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	// Pagination
	Limit  int
	Offset int

	// Filtering
	Status *models.WorkflowStatus

	// Sorting
	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (s *Status) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if err := s.validateListWorkflowsRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	opts := persistence.ListOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	result, err := s.persistence.ListWorkflows(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// validateListWorkflowsRequest validates and sets defaults for the request.
func (s *Status) validateListWorkflowsRequest(req *ListWorkflowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = persistence.DefaultListLimit
	}

	if req.Limit > persistence.MaxListLimit {
		req.Limit = persistence.MaxListLimit
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "status"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil {
		allowedStatuses := []models.WorkflowStatus{
			models.WorkflowStatusPending,
			models.WorkflowStatusRunning,
			models.WorkflowStatusCompleted,
			models.WorkflowStatusFailed,
			models.WorkflowStatusCancelled,
		}

		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError(
				"validateListWorkflowsRequest",
				"INVALID_STATUS",
				fmt.Sprintf("invalid status '%s'", *req.Status),
				ErrInvalidStatus,
			)
		}
	}

	return nil
}
