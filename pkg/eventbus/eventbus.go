// Package eventbus provides the pub/sub abstraction carrying execution
// lifecycle events. It is injected into the executor so multi-process
// deployments can swap the in-memory channel for a broker.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/zynthex/zynthex/pkg/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EventHandler func(ctx context.Context, eventType events.EventType, payload []byte) error

type EventBus interface {
	EventPublisher
	Subscribe(ctx context.Context, handler EventHandler) error
	Close() error
}

// WatermillEventBus publishes execution events over any watermill
// publisher/subscriber pair.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

// NewGoChannelEventBus builds an in-process bus, the single-binary default.
func NewGoChannelEventBus(logger watermill.LoggerAdapter) *WatermillEventBus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	return NewWatermillEventBus(pubSub, pubSub)
}

func (eb *WatermillEventBus) Publish(_ context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, handler EventHandler) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			if err := handler(ctx, eventType, msg.Payload); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
