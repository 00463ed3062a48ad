package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

// updateRetries bounds the optimistic retry loop when concurrent writers
// invalidate a watched key.
const updateRetries = 5

func (p *Persistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	err := persistence.ValidateNewWorkflow(workflow)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	created, err := p.client.SetNX(ctx, workflowKey(workflow.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store workflow %s: %w", workflow.ID, err)
	}

	if !created {
		return persistence.NewWorkflowError("create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	err = p.client.SAdd(ctx, workflowIndexKey, workflow.ID).Err()
	if err != nil {
		return fmt.Errorf("failed to index workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	payload, err := p.client.Get(ctx, workflowKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewWorkflowError("get", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	return unmarshalWorkflow(id, payload)
}

// UpdateWorkflow applies mutate inside a WATCH transaction so concurrent
// writers cannot interleave between the read and the write. The transaction
// is retried a bounded number of times when the watched key changes.
func (p *Persistence) UpdateWorkflow(ctx context.Context, id string, mutate func(workflow *models.Workflow) error) (*models.Workflow, error) {
	key := workflowKey(id)

	var updated *models.Workflow

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return persistence.NewWorkflowError("update", id, persistence.ErrWorkflowNotFound)
		}

		if err != nil {
			return fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		stored, err := unmarshalWorkflow(id, payload)
		if err != nil {
			return err
		}

		updated, err = persistence.ApplyMutation(stored, mutate)
		if err != nil {
			return err
		}

		out, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal workflow %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)

			return nil
		})

		return err
	}

	for range updateRetries {
		err := p.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, fmt.Errorf("failed to update workflow %s: too many concurrent modifications", id)
}

func (p *Persistence) ListWorkflows(ctx context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	if err := persistence.NormalizeListOptions(&opts); err != nil {
		return nil, err
	}

	workflows, err := p.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	workflows = persistence.FilterWorkflows(workflows, opts.Status)
	persistence.SortWorkflows(workflows, opts.SortBy, opts.SortOrder)

	return persistence.PageWorkflows(workflows, opts.Limit, opts.Offset), nil
}

// DeleteWorkflow removes a terminal workflow. The terminal check and the
// delete run inside a WATCH transaction so a concurrent transition cannot
// slip in between them.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	key := workflowKey(id)

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return persistence.NewWorkflowError("delete", id, persistence.ErrWorkflowNotFound)
		}

		if err != nil {
			return fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		stored, err := unmarshalWorkflow(id, payload)
		if err != nil {
			return err
		}

		if !stored.Terminal() {
			return &persistence.WorkflowError{
				Op:         "delete",
				WorkflowID: id,
				Err:        persistence.ErrWorkflowNotTerminal,
				Message:    fmt.Sprintf("workflow is %s", stored.Status),
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, workflowIndexKey, id)

			return nil
		})

		return err
	}

	for range updateRetries {
		err := p.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("failed to delete workflow %s: too many concurrent modifications", id)
}

func (p *Persistence) ListExpired(ctx context.Context, olderThan time.Time) ([]*models.Workflow, error) {
	workflows, err := p.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	expired := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.Terminal() && workflow.UpdatedAt.Before(olderThan) {
			expired = append(expired, workflow)
		}
	}

	persistence.SortWorkflows(expired, "updated_at", "asc")

	return expired, nil
}

func (p *Persistence) loadAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := p.client.SMembers(ctx, workflowIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow ids: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := p.WorkflowByID(ctx, id)
		if persistence.IsWorkflowNotFound(err) {
			// Index entry without a key: the workflow was deleted mid-scan.
			continue
		}

		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func unmarshalWorkflow(id string, payload []byte) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	err := json.Unmarshal(payload, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return workflow, nil
}
