package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/codegenius/codegenius/pkg/channels/gochannel"
	"github.com/codegenius/codegenius/pkg/eventbus"
	"github.com/codegenius/codegenius/pkg/events"
	"github.com/codegenius/codegenius/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		err := bus.Close()
		require.NoError(t, err)
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.WorkflowPhaseFinished, 1)

	err := bus.Handle(events.WorkflowPhaseFinishedEvent, func(_ context.Context, event interface{}) error {
		phaseFinished, ok := event.(*events.WorkflowPhaseFinished)
		require.True(t, ok)

		received <- phaseFinished

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	published := events.WorkflowPhaseFinished{
		BaseEvent:  events.NewBaseEvent(events.WorkflowPhaseFinishedEvent, "wf-123"),
		Phase:      models.PhaseMapping,
		PhaseIndex: 0,
		DurationMs: 150,
		Progress:   1.0 / 3.0,
	}

	require.NoError(t, bus.Publish(ctx, "wf-123", published))

	select {
	case event := <-received:
		assert.Equal(t, "wf-123", event.WorkflowID)
		assert.Equal(t, models.PhaseMapping, event.Phase)
		assert.InDelta(t, 1.0/3.0, event.Progress, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for phase finished event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.WorkflowExecutionCancelled, 1)

	err := bus.Handle(events.WorkflowExecutionCancelledEvent, func(_ context.Context, event interface{}) error {
		cancelled, ok := event.(*events.WorkflowExecutionCancelled)
		require.True(t, ok)

		received <- cancelled

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for submissions; the bus acks and moves on.
	submitted := events.WorkflowSubmitted{
		BaseEvent:     events.NewBaseEvent(events.WorkflowSubmittedEvent, "wf-123"),
		RepositoryURL: "https://github.com/acme/widget",
	}
	require.NoError(t, bus.Publish(ctx, "wf-123", submitted))

	cancelled := events.WorkflowExecutionCancelled{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionCancelledEvent, "wf-123"),
		Status:    string(models.WorkflowStatusCancelled),
		Reason:    "requested by client",
	}
	require.NoError(t, bus.Publish(ctx, "wf-123", cancelled))

	select {
	case event := <-received:
		assert.Equal(t, "requested by client", event.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for cancelled event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
