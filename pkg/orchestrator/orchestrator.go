// Package orchestrator drives workflows through the fixed analysis pipeline.
// It owns admission (FIFO, bounded concurrency), phase sequencing, progress
// checkpoints, cancellation and result aggregation. All record mutations go
// through the persistence layer's atomic update; the orchestrator holds no
// authoritative state of its own.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/codegenius/codegenius/pkg/eventbus"
	"github.com/codegenius/codegenius/pkg/events"
	"github.com/codegenius/codegenius/pkg/models"
	"github.com/codegenius/codegenius/pkg/persistence"
	"github.com/codegenius/codegenius/pkg/registry"
)

const DefaultMaxConcurrent = 4

// Config tunes one orchestrator instance.
type Config struct {
	// MaxConcurrent caps simultaneously running workflows. Submissions
	// beyond the cap queue in FIFO order. Values below 1 fall back to
	// DefaultMaxConcurrent.
	MaxConcurrent int

	// PhaseTimeout bounds each phase execution. Zero disables the bound.
	PhaseTimeout time.Duration

	// WorkflowTimeout bounds a workflow end to end, measured from admission.
	// Zero disables the bound.
	WorkflowTimeout time.Duration

	// WorkerID is stamped on every published event. Empty generates one.
	WorkerID string

	// Bindings maps phase names to capabilities. Nil uses the built-in
	// bindings.
	Bindings map[string]PhaseBinding
}

// Orchestrator accepts analysis submissions and runs them through the
// pipeline. Safe for concurrent use.
type Orchestrator struct {
	config      Config
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	runner      *PhaseRunner
	validator   *validator.Validate
	logger      *slog.Logger
	tracer      trace.Tracer

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	queue    []string
	running  map[string]context.CancelFunc
	active   int
	shutdown bool

	wg sync.WaitGroup
}

func NewOrchestrator(
	config Config,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Orchestrator {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}

	if config.WorkerID == "" {
		config.WorkerID = "orchestrator-" + uuid.New().String()[:8]
	}

	if config.Bindings == nil {
		config.Bindings = DefaultPhaseBindings()
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Orchestrator{
		config:      config,
		persistence: store,
		eventBus:    eventBus,
		runner:      NewPhaseRunner(reg, config.PhaseTimeout, logger),
		validator:   validator.New(),
		logger:      logger.With("module", "orchestrator", "worker_id", config.WorkerID),
		tracer:      otel.Tracer("codegenius/orchestrator"),
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		running:     make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, creates a pending workflow record and queues
// it for execution. When a running slot is free the workflow starts
// immediately; otherwise it waits its turn in FIFO order.
func (o *Orchestrator) Submit(ctx context.Context, request models.AnalysisRequest) (*models.Workflow, error) {
	request.ApplyDefaults()

	if err := o.validator.Struct(request); err != nil {
		return nil, &ValidationError{Err: err}
	}

	workflow := models.NewWorkflow(uuid.New().String(), request)

	if err := o.persistence.CreateWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	o.mu.Lock()

	if o.shutdown {
		o.mu.Unlock()
		o.discardAfterShutdown(workflow.ID)

		return nil, ErrShuttingDown
	}

	o.queue = append(o.queue, workflow.ID)
	position := o.active + len(o.queue)
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "Workflow submitted",
		"workflow_id", workflow.ID, "repository_url", request.RepositoryURL, "queue_position", position)

	// Publish before admitting so the submitted event precedes the
	// execution events of the same workflow.
	event := events.WorkflowSubmitted{
		BaseEvent:     o.newEvent(events.WorkflowSubmittedEvent, workflow.ID),
		RepositoryURL: request.RepositoryURL,
		Depth:         request.Depth,
		QueuePosition: position,
	}
	o.publish(ctx, workflow.ID, event)

	o.mu.Lock()
	o.admitLocked()
	o.mu.Unlock()

	return workflow, nil
}

// Cancel stops a workflow. Queued workflows go terminal immediately without
// executing any phase; running workflows are cancelled cooperatively and go
// terminal once the execution loop observes the cancellation. Cancelling a
// terminal workflow returns ErrAlreadyTerminal.
func (o *Orchestrator) Cancel(ctx context.Context, workflowID string) (*models.Workflow, error) {
	o.mu.Lock()

	queued := false

	for i, id := range o.queue {
		if id == workflowID {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			queued = true

			break
		}
	}

	cancelRun, isRunning := o.running[workflowID]
	o.mu.Unlock()

	if queued {
		workflow, err := o.persistence.UpdateWorkflow(ctx, workflowID, func(w *models.Workflow) error {
			w.Status = models.WorkflowStatusCancelled
			w.CurrentPhase = ""

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to cancel workflow: %w", err)
		}

		o.logger.InfoContext(ctx, "Cancelled queued workflow", "workflow_id", workflowID)

		event := events.WorkflowExecutionCancelled{
			BaseEvent:      o.newEvent(events.WorkflowExecutionCancelledEvent, workflowID),
			Status:         string(models.WorkflowStatusCancelled),
			Reason:         "cancelled before execution started",
			PhasesExecuted: 0,
		}
		o.publish(ctx, workflowID, event)

		return workflow, nil
	}

	if isRunning {
		cancelRun()

		o.logger.InfoContext(ctx, "Cancellation requested for running workflow", "workflow_id", workflowID)

		// The execution loop performs the terminal transition and emits the
		// event; the returned snapshot may still show the workflow running.
		return o.persistence.WorkflowByID(ctx, workflowID)
	}

	workflow, err := o.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Terminal() {
		return nil, fmt.Errorf("cannot cancel workflow %s in status %s: %w",
			workflowID, workflow.Status, ErrAlreadyTerminal)
	}

	// Pending in the store but unknown to this instance: another instance
	// owns it, or it was enqueued and dropped during shutdown. Transition it
	// directly.
	workflow, err = o.persistence.UpdateWorkflow(ctx, workflowID, func(w *models.Workflow) error {
		w.Status = models.WorkflowStatusCancelled
		w.CurrentPhase = ""

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel workflow: %w", err)
	}

	event := events.WorkflowExecutionCancelled{
		BaseEvent:      o.newEvent(events.WorkflowExecutionCancelledEvent, workflowID),
		Status:         string(models.WorkflowStatusCancelled),
		Reason:         "cancelled before execution started",
		PhasesExecuted: 0,
	}
	o.publish(ctx, workflowID, event)

	return workflow, nil
}

// Shutdown stops admission, cancels queued and running workflows and waits
// for executions to wind down or for ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()

	if o.shutdown {
		o.mu.Unlock()

		return nil
	}

	o.shutdown = true
	queued := o.queue
	o.queue = nil
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "Orchestrator shutting down",
		"queued_workflows", len(queued), "running_workflows", o.RunningCount())

	for _, id := range queued {
		o.discardAfterShutdown(id)
	}

	o.baseCancel()

	done := make(chan struct{})

	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown wait interrupted: %w", ctx.Err())
	}
}

// QueuedCount returns the number of workflows waiting for a running slot.
func (o *Orchestrator) QueuedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.queue)
}

// RunningCount returns the number of workflows currently executing.
func (o *Orchestrator) RunningCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.active
}

// admitLocked starts queued workflows while capacity allows. Callers hold
// o.mu.
func (o *Orchestrator) admitLocked() {
	for !o.shutdown && o.active < o.config.MaxConcurrent && len(o.queue) > 0 {
		id := o.queue[0]
		o.queue = o.queue[1:]

		runCtx, cancel := o.newRunContext()
		o.running[id] = cancel
		o.active++

		o.wg.Add(1)

		go o.execute(runCtx, id)
	}
}

func (o *Orchestrator) newRunContext() (context.Context, context.CancelFunc) {
	if o.config.WorkflowTimeout > 0 {
		return context.WithTimeout(o.baseCtx, o.config.WorkflowTimeout)
	}

	return context.WithCancel(o.baseCtx)
}

// release frees the workflow's running slot and admits the next queued
// workflow, if any.
func (o *Orchestrator) release(workflowID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cancel, ok := o.running[workflowID]; ok {
		cancel()
		delete(o.running, workflowID)
	}

	o.active--
	o.admitLocked()
}

// discardAfterShutdown transitions a workflow that will never run to
// cancelled.
func (o *Orchestrator) discardAfterShutdown(workflowID string) {
	ctx := context.Background()

	_, err := o.persistence.UpdateWorkflow(ctx, workflowID, func(w *models.Workflow) error {
		w.Status = models.WorkflowStatusCancelled
		w.CurrentPhase = ""

		return nil
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to cancel queued workflow during shutdown",
			"workflow_id", workflowID, "error", err)

		return
	}

	event := events.WorkflowExecutionCancelled{
		BaseEvent:      o.newEvent(events.WorkflowExecutionCancelledEvent, workflowID),
		Status:         string(models.WorkflowStatusCancelled),
		Reason:         "orchestrator shutdown",
		PhasesExecuted: 0,
	}
	o.publish(ctx, workflowID, event)
}

func (o *Orchestrator) newEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	event := events.NewBaseEvent(eventType, workflowID)
	event.WorkerID = o.config.WorkerID

	return event
}

func (o *Orchestrator) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, workflowID, event); err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish workflow event",
			"workflow_id", workflowID, "event_type", event.GetType(), "error", err)
	}
}
