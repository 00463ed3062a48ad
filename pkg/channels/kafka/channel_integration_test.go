//go:build integration
// +build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/codegenius/codegenius/pkg/eventbus"
	"github.com/codegenius/codegenius/pkg/events"
	"github.com/codegenius/codegenius/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafkaBrokers(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	kafkaContainer, err := tckafka.RunContainer(ctx,
		tckafka.WithClusterID("codegenius-test-cluster"),
		testcontainers.WithImage("confluentinc/confluent-local:7.5.0"),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		err := kafkaContainer.Terminate(ctx)
		assert.NoError(t, err)
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	return brokers[0]
}

func TestCreateChannel_RoundTripWithRealKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Kafka integration test in short mode")
	}

	brokers := setupKafkaBrokers(t)
	t.Setenv("KAFKA_BROKERS", brokers)

	pub, sub, err := CreateChannel(watermill.NopLogger{}, "channel-test")
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() {
		err := bus.Close()
		assert.NoError(t, err)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	received := make(chan *events.WorkflowExecutionCompleted, 1)

	err = bus.Handle(events.WorkflowExecutionCompletedEvent, func(_ context.Context, event interface{}) error {
		completed, ok := event.(*events.WorkflowExecutionCompleted)
		require.True(t, ok)

		received <- completed

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	published := events.WorkflowExecutionCompleted{
		BaseEvent:      events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, "wf-kafka-1"),
		Status:         string(models.WorkflowStatusCompleted),
		DurationMs:     2500,
		PhasesExecuted: 3,
		OverallScore:   0.87,
	}

	require.NoError(t, bus.Publish(ctx, "wf-kafka-1", published))

	select {
	case event := <-received:
		assert.Equal(t, "wf-kafka-1", event.WorkflowID)
		assert.Equal(t, 3, event.PhasesExecuted)
		assert.InDelta(t, 0.87, event.OverallScore, 1e-9)
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for event from Kafka")
	}
}

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	_, _, err := CreateChannel(watermill.NopLogger{}, "channel-test")
	require.Error(t, err)
}
