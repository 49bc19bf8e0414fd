package cmd

import (
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/zynthex/zynthex/pkg/eventbus"
)

// NewEventBus builds the execution event bus. Without brokers the in-process
// channel bus is used; a comma-separated broker list switches to Kafka.
func NewEventBus(kafkaBrokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if kafkaBrokers == "" {
		return eventbus.NewGoChannelEventBus(wmLogger), nil
	}

	return eventbus.NewKafkaEventBus(strings.Split(kafkaBrokers, ","), "zynthex", wmLogger)
}
