package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
)

func workflowsDir(root string) string {
	return path.Join(root, "workflows")
}

func (fp *Persistence) workflowPath(id string) string {
	return filepath.Clean(path.Join(workflowsDir(fp.root), id+".json"))
}

// load reads one workflow document. Callers hold at least the read lock.
func (fp *Persistence) load(id string) (*models.Workflow, error) {
	body, err := os.ReadFile(fp.workflowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

// save writes the document via a temp file and rename, so readers never see
// a torn write. Callers hold the write lock.
func (fp *Persistence) save(workflow *models.Workflow) error {
	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	target := fp.workflowPath(workflow.ID)

	tmp, err := os.CreateTemp(workflowsDir(fp.root), workflow.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for workflow %s: %w", workflow.ID, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to flush workflow %s: %w", workflow.ID, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to store workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// loadAll reads every workflow document. Callers hold at least the read lock.
func (fp *Persistence) loadAll() ([]*models.Workflow, error) {
	root := os.DirFS(workflowsDir(fp.root))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		workflow, err := fp.load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (fp *Persistence) CreateWorkflow(_ context.Context, workflow *models.Workflow) error {
	if err := persistence.ValidateNewWorkflow(workflow); err != nil {
		return err
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if _, err := os.Stat(fp.workflowPath(workflow.ID)); err == nil {
		return persistence.NewWorkflowError("CreateWorkflow", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	return fp.save(workflow.Clone())
}

func (fp *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	workflow, err := fp.load(id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, err
	}

	return workflow, nil
}

func (fp *Persistence) UpdateWorkflow(_ context.Context, id string, mutate func(*models.Workflow) error) (*models.Workflow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	stored, err := fp.load(id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, persistence.NewWorkflowError("UpdateWorkflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, err
	}

	updated, err := persistence.ApplyMutation(stored, mutate)
	if err != nil {
		return nil, err
	}

	if err := fp.save(updated); err != nil {
		return nil, err
	}

	return updated.Clone(), nil
}

func (fp *Persistence) ListWorkflows(_ context.Context, opts persistence.ListOptions) (*persistence.WorkflowListResult, error) {
	if err := persistence.NormalizeListOptions(&opts); err != nil {
		return nil, err
	}

	fp.mu.RLock()
	all, err := fp.loadAll()
	fp.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	filtered := persistence.FilterWorkflows(all, opts.Status)
	persistence.SortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	return persistence.PageWorkflows(filtered, opts.Limit, opts.Offset), nil
}

func (fp *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	workflow, err := fp.load(id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
		}

		return err
	}

	if !workflow.Terminal() {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotTerminal)
	}

	if err := os.Remove(fp.workflowPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (fp *Persistence) ListExpired(_ context.Context, olderThan time.Time) ([]*models.Workflow, error) {
	fp.mu.RLock()
	all, err := fp.loadAll()
	fp.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	expired := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.Terminal() && workflow.UpdatedAt.Before(olderThan) {
			expired = append(expired, workflow)
		}
	}

	return expired, nil
}
