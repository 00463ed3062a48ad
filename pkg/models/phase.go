package models

import "time"

// Phase names, in execution order.
const (
	PhaseMapping       = "mapping"
	PhaseAnalysis      = "analysis"
	PhaseDocumentation = "documentation"
)

// Phases returns the fixed phase sequence every workflow executes.
func Phases() []string {
	return []string{PhaseMapping, PhaseAnalysis, PhaseDocumentation}
}

// ErrorKind classifies a phase failure.
type ErrorKind string

const (
	ErrorKindTimeout       ErrorKind = "timeout_exceeded"
	ErrorKindCancelled     ErrorKind = "cancelled"
	ErrorKindInvalidOutput ErrorKind = "invalid_output"
	ErrorKindCapability    ErrorKind = "capability_error"
	ErrorKindPanic         ErrorKind = "panic"
)

// PhaseError records which phase failed and why. It is set on failed
// workflows and nowhere else.
type PhaseError struct {
	Phase   string    `json:"phase"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Clone returns a copy of the error record.
func (e *PhaseError) Clone() *PhaseError {
	if e == nil {
		return nil
	}

	clone := *e

	return &clone
}

// PhaseContext carries the workflow input and the accumulated outputs of
// prior phases into a capability invocation. Outputs is keyed by phase name.
type PhaseContext struct {
	WorkflowID string                    `json:"workflow_id"`
	Request    AnalysisRequest           `json:"request"`
	Outputs    map[string]map[string]any `json:"outputs"`
}

// NewPhaseContext builds the context for a workflow's first phase.
func NewPhaseContext(workflow *Workflow) *PhaseContext {
	return &PhaseContext{
		WorkflowID: workflow.ID,
		Request:    workflow.Input.Clone(),
		Outputs:    make(map[string]map[string]any),
	}
}

// PhaseResult is the normalized outcome of running one phase. It is consumed
// only by the orchestrator, never exposed to callers.
type PhaseResult struct {
	Phase    string         `json:"phase"`
	Success  bool           `json:"success"`
	Output   map[string]any `json:"output,omitempty"`
	Kind     ErrorKind      `json:"kind,omitempty"`
	Message  string         `json:"message,omitempty"`
	Duration time.Duration  `json:"duration"`
}
