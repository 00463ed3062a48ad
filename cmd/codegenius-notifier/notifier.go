package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codegenius/codegenius/pkg/eventbus"
	"github.com/codegenius/codegenius/pkg/events"
)

// notifiedEvents lists every workflow lifecycle event forwarded to the webhook.
var notifiedEvents = []events.EventType{
	events.WorkflowSubmittedEvent,
	events.WorkflowExecutionStartedEvent,
	events.WorkflowPhaseStartedEvent,
	events.WorkflowPhaseFinishedEvent,
	events.WorkflowPhaseFailedEvent,
	events.WorkflowExecutionCompletedEvent,
	events.WorkflowExecutionFailedEvent,
	events.WorkflowExecutionCancelledEvent,
	events.WorkflowExecutionTimeoutEvent,
}

// Notifier consumes workflow lifecycle events and forwards each one to an
// external webhook as a JSON POST.
type Notifier struct {
	id         string
	eventBus   eventbus.EventBus
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewNotifier creates a new Notifier instance.
func NewNotifier(id string, eventBus eventbus.EventBus, webhookURL string, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		id:         id,
		eventBus:   eventBus,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With("module", "notifier"),
	}
}

// Start begins forwarding workflow events until the context is cancelled or a
// termination signal arrives.
func (n *Notifier) Start(ctx context.Context) error {
	nCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	n.logger.InfoContext(nCtx, "Starting notifier", "webhook_url", n.webhookURL)

	if err := n.setupEventSubscriptions(nCtx); err != nil {
		return err
	}

	n.handleSignals(nCtx, cancel)

	<-nCtx.Done()
	n.logger.Info("Notifier context cancelled, stopping...")

	return nil
}

// setupEventSubscriptions registers the forwarding handler for every workflow
// event type and starts the event bus subscription.
func (n *Notifier) setupEventSubscriptions(ctx context.Context) error {
	for _, eventType := range notifiedEvents {
		if err := n.eventBus.Handle(eventType, n.forwardEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s events: %w", eventType, err)
		}
	}

	if err := n.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to start event subscription: %w", err)
	}

	n.logger.InfoContext(ctx, "Subscribed to workflow events", "event_types", len(notifiedEvents))

	return nil
}

func (n *Notifier) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		n.logger.InfoContext(ctx, "Received signal", "signal", sig)
		cancel()
	}()
}

// forwardEvent delivers a single workflow event to the webhook. Delivery
// failures are logged and acked, not retried.
func (n *Notifier) forwardEvent(ctx context.Context, event any) error {
	evt, ok := event.(eventbus.Event)
	if !ok {
		return fmt.Errorf("unexpected event payload of type %T", event)
	}

	logger := n.logger.With("event_type", evt.GetType())

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", evt.GetType(), err)
	}

	if err := n.deliver(ctx, payload); err != nil {
		logger.ErrorContext(ctx, "Webhook delivery failed", "error", err)

		return nil
	}

	logger.InfoContext(ctx, "Delivered workflow event")

	return nil
}

func (n *Notifier) deliver(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notifier-ID", n.id)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
