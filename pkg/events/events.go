// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/codegenius/codegenius/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow lifecycle event.
const Topic = "codegenius.workflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Submission and execution lifecycle events.
	WorkflowSubmittedEvent          EventType = "workflow.submitted"
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionCancelledEvent EventType = "workflow.execution.cancelled"
	WorkflowExecutionTimeoutEvent   EventType = "workflow.execution.timeout"

	// Per-phase events.
	WorkflowPhaseStartedEvent  EventType = "workflow.phase.started"
	WorkflowPhaseFinishedEvent EventType = "workflow.phase.finished"
	WorkflowPhaseFailedEvent   EventType = "workflow.phase.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type WorkflowSubmitted struct {
	BaseEvent

	RepositoryURL string `json:"repository_url"`
	Depth         string `json:"depth"`
	QueuePosition int    `json:"queue_position"`
}

func (w WorkflowSubmitted) GetType() EventType {
	return WorkflowSubmittedEvent
}

type WorkflowExecutionStarted struct {
	BaseEvent

	RepositoryURL string   `json:"repository_url"`
	Branch        string   `json:"branch"`
	Phases        []string `json:"phases"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowPhaseStarted struct {
	BaseEvent

	Phase      string `json:"phase"`
	PhaseIndex int    `json:"phase_index"`
}

func (w WorkflowPhaseStarted) GetType() EventType {
	return WorkflowPhaseStartedEvent
}

type WorkflowPhaseFinished struct {
	BaseEvent

	Phase      string  `json:"phase"`
	PhaseIndex int     `json:"phase_index"`
	DurationMs int64   `json:"duration_ms"`
	Progress   float64 `json:"progress"`
}

func (w WorkflowPhaseFinished) GetType() EventType {
	return WorkflowPhaseFinishedEvent
}

type WorkflowPhaseFailed struct {
	BaseEvent

	Phase      string           `json:"phase"`
	Kind       models.ErrorKind `json:"kind"`
	Error      string           `json:"error"`
	DurationMs int64            `json:"duration_ms"`
}

func (w WorkflowPhaseFailed) GetType() EventType {
	return WorkflowPhaseFailedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	Status         string  `json:"status"`
	DurationMs     int64   `json:"duration_ms"`
	PhasesExecuted int     `json:"phases_executed"`
	OverallScore   float64 `json:"overall_score"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

// WorkflowError is the failure payload carried by WorkflowExecutionFailed.
type WorkflowError struct {
	Phase   string           `json:"phase"`
	Kind    models.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type WorkflowExecutionFailed struct {
	BaseEvent

	Status         string        `json:"status"`
	DurationMs     int64         `json:"duration_ms"`
	Error          WorkflowError `json:"error"`
	PhasesExecuted int           `json:"phases_executed"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionCancelled struct {
	BaseEvent

	Status         string `json:"status"`
	DurationMs     int64  `json:"duration_ms"`
	Reason         string `json:"reason"`
	PhasesExecuted int    `json:"phases_executed"`
}

func (w WorkflowExecutionCancelled) GetType() EventType {
	return WorkflowExecutionCancelledEvent
}

type WorkflowExecutionTimeout struct {
	BaseEvent

	Status         string `json:"status"`
	DurationMs     int64  `json:"duration_ms"`
	TimeoutLimitMs int64  `json:"timeout_limit_ms"`
	StuckPhase     string `json:"stuck_phase"`
}

func (w WorkflowExecutionTimeout) GetType() EventType {
	return WorkflowExecutionTimeoutEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
