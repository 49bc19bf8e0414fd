package eventbus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynthex/zynthex/pkg/eventbus"
	"github.com/zynthex/zynthex/pkg/events"
)

func TestGoChannelEventBus_RoundTrip(t *testing.T) {
	bus := eventbus.NewGoChannelEventBus(watermill.NopLogger{})
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.ExecutionStarted, 1)

	err := bus.Subscribe(ctx, func(_ context.Context, eventType events.EventType, payload []byte) error {
		if eventType != events.ExecutionStartedEvent {
			return nil
		}

		var event events.ExecutionStarted
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}

		received <- event

		return nil
	})
	require.NoError(t, err)

	err = bus.Publish(ctx, events.ExecutionStarted{
		BaseEvent: events.BaseEvent{
			ID:         "evt-1",
			Type:       events.ExecutionStartedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: "wf-1",
		},
		ExecutionID: "exec-1",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "wf-1", event.WorkflowID)
		assert.Equal(t, "exec-1", event.ExecutionID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}
