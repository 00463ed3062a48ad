// Package models defines the core domain models for repository analysis
// workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"   // Created, waiting for a running slot
	WorkflowStatusRunning   WorkflowStatus = "running"   // Admitted, phases executing
	WorkflowStatusCompleted WorkflowStatus = "completed" // Every phase succeeded
	WorkflowStatusFailed    WorkflowStatus = "failed"    // A phase failed
	WorkflowStatusCancelled WorkflowStatus = "cancelled" // Cancelled before reaching a result
)

// Terminal reports whether the status admits no further transitions.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusFailed || s == WorkflowStatusCancelled
}

// CanTransitionTo reports whether the lifecycle state machine allows moving
// from s to next. Terminal states have no outgoing transitions.
func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	switch s {
	case WorkflowStatusPending:
		return next == WorkflowStatusRunning || next == WorkflowStatusCancelled
	case WorkflowStatusRunning:
		return next == WorkflowStatusCompleted ||
			next == WorkflowStatusFailed ||
			next == WorkflowStatusCancelled
	default:
		return false
	}
}

// Workflow is one end-to-end analysis request progressing through the fixed
// phase sequence. Identity and input are immutable after creation; status,
// progress and the terminal payloads mutate only through the store.
type Workflow struct {
	ID           string          `json:"id"`
	Input        AnalysisRequest `json:"input"`
	Status       WorkflowStatus  `json:"status"`
	Progress     float64         `json:"progress"`
	CurrentPhase string          `json:"current_phase,omitempty"`
	Result       *AnalysisResult `json:"result,omitempty"`
	Error        *PhaseError     `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewWorkflow returns a pending workflow for the given request.
func NewWorkflow(id string, input AnalysisRequest) *Workflow {
	now := time.Now().UTC()

	return &Workflow{
		ID:        id,
		Input:     input,
		Status:    WorkflowStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the workflow reached a terminal status.
func (w *Workflow) Terminal() bool {
	return w.Status.Terminal()
}

// Clone returns a deep copy, so callers can hand out snapshots without
// exposing store-internal state to mutation.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	clone := *w
	clone.Input = w.Input.Clone()
	clone.Result = w.Result.Clone()
	clone.Error = w.Error.Clone()

	return &clone
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAnyValue(v)
	}

	return out
}

func cloneAnyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneAnyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneAnyValue(e)
		}

		return out
	default:
		return v
	}
}
