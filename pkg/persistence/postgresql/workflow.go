package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
)

const workflowColumns = `
			id
		  , input
		  , status
		  , progress
		  , current_phase
		  , result
		  , error
		  , created_at
		  , updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(scanner rowScanner) (*models.Workflow, error) {
	var (
		workflow   models.Workflow
		inputJSON  []byte
		resultJSON []byte
		errorJSON  []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&inputJSON,
		&workflow.Status,
		&workflow.Progress,
		&workflow.CurrentPhase,
		&resultJSON,
		&errorJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inputJSON, &workflow.Input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow input: %w", err)
	}

	if len(resultJSON) > 0 {
		workflow.Result = &models.AnalysisResult{}
		if err := json.Unmarshal(resultJSON, workflow.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow result: %w", err)
		}
	}

	if len(errorJSON) > 0 {
		workflow.Error = &models.PhaseError{}
		if err := json.Unmarshal(errorJSON, workflow.Error); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow error: %w", err)
		}
	}

	return &workflow, nil
}

func marshalPayloads(workflow *models.Workflow) (inputJSON, resultJSON, errorJSON []byte, err error) {
	inputJSON, err = json.Marshal(workflow.Input)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal workflow input: %w", err)
	}

	if workflow.Result != nil {
		resultJSON, err = json.Marshal(workflow.Result)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal workflow result: %w", err)
		}
	}

	if workflow.Error != nil {
		errorJSON, err = json.Marshal(workflow.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal workflow error: %w", err)
		}
	}

	return inputJSON, resultJSON, errorJSON, nil
}

// nullable keeps NULL in JSONB columns instead of the SQL string "null".
func nullable(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}

	return payload
}

func (p *Persistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if err := persistence.ValidateNewWorkflow(workflow); err != nil {
		return err
	}

	inputJSON, resultJSON, errorJSON, err := marshalPayloads(workflow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, input, status, progress, current_phase, result, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	outcome, err := p.db.ExecContext(ctx, query,
		workflow.ID,
		inputJSON,
		workflow.Status,
		workflow.Progress,
		workflow.CurrentPhase,
		nullable(resultJSON),
		nullable(errorJSON),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert workflow %s: %w", workflow.ID, err)
	}

	inserted, err := outcome.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check workflow insert %s: %w", workflow.ID, err)
	}

	if inserted == 0 {
		return persistence.NewWorkflowError("CreateWorkflow", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	return nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	return workflow, nil
}

func (p *Persistence) UpdateWorkflow(ctx context.Context, id string, mutate func(*models.Workflow) error) (*models.Workflow, error) {
	transaction, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for workflow %s: %w", id, err)
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 FOR UPDATE`

	stored, err := scanWorkflow(transaction.QueryRowContext(ctx, query, id))
	if err != nil {
		_ = transaction.Rollback()

		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("UpdateWorkflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s for update: %w", id, err)
	}

	updated, err := persistence.ApplyMutation(stored, mutate)
	if err != nil {
		_ = transaction.Rollback()

		return nil, err
	}

	_, resultJSON, errorJSON, err := marshalPayloads(updated)
	if err != nil {
		_ = transaction.Rollback()

		return nil, err
	}

	updateQuery := `
		UPDATE workflows
		SET status = $2
		  , progress = $3
		  , current_phase = $4
		  , result = $5
		  , error = $6
		  , updated_at = $7
		WHERE id = $1
	`

	_, err = transaction.ExecContext(ctx, updateQuery,
		id,
		updated.Status,
		updated.Progress,
		updated.CurrentPhase,
		nullable(resultJSON),
		nullable(errorJSON),
		updated.UpdatedAt,
	)
	if err != nil {
		_ = transaction.Rollback()

		return nil, fmt.Errorf("failed to update workflow %s: %w", id, err)
	}

	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit workflow update %s: %w", id, err)
	}

	return updated, nil
}

func (p *Persistence) ListWorkflows(ctx context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	if err := persistence.NormalizeListOptions(&opts); err != nil {
		return nil, err
	}

	where := ""
	args := []any{}

	if opts.Status != nil {
		where = "WHERE status = $1"
		args = append(args, string(*opts.Status))
	}

	var totalCount int64

	countQuery := "SELECT COUNT(*) FROM workflows " + where
	if err := p.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	// Sort parameters come from the allowlist in NormalizeListOptions; they
	// are safe to interpolate.
	query := fmt.Sprintf(`SELECT %s FROM workflows %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		workflowColumns, where, opts.SortBy, opts.SortOrder, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(workflows)) < totalCount,
	}, nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	transaction, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for workflow %s: %w", id, err)
	}

	var status models.WorkflowStatus

	err = transaction.QueryRowContext(ctx, "SELECT status FROM workflows WHERE id = $1 FOR UPDATE", id).Scan(&status)
	if err != nil {
		_ = transaction.Rollback()

		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
		}

		return fmt.Errorf("failed to fetch workflow %s for delete: %w", id, err)
	}

	if !status.Terminal() {
		_ = transaction.Rollback()

		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotTerminal)
	}

	_, err = transaction.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit workflow delete %s: %w", id, err)
	}

	return nil
}

func (p *Persistence) ListExpired(ctx context.Context, olderThan time.Time) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE status IN ('completed', 'failed', 'cancelled') AND updated_at < $1
		ORDER BY updated_at ASC
	`

	rows, err := p.db.QueryContext(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired workflows: %w", err)
	}

	return workflows, nil
}
