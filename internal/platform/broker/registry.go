package broker

import (
	"context"
	"log/slog"
)

// Dispatcher routes a consumed payload by topic.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic string, payload []byte) error
}

// StartKafkaConsumers starts one consumer per topic. It does nothing when no
// broker is configured.
func StartKafkaConsumers(
	ctx context.Context,
	dispatcher Dispatcher,
	brokers []string,
	groupID string,
	topics []string,
) {
	if len(brokers) == 0 || len(topics) == 0 {
		slog.Info("kafka ingest disabled", slog.Int("brokers", len(brokers)), slog.Int("topics", len(topics)))
		return
	}
	for _, topic := range topics {
		go func(tp string) {
			consumer := NewKafkaConsumer(brokers, groupID, tp)
			slog.Info("kafka consumer started", slog.String("topic", tp), slog.String("group", groupID))
			err := consumer.Consume(ctx, dispatcher.Dispatch)
			slog.Info("kafka consumer stopped", slog.String("topic", tp), slog.Any("reason", err))
		}(topic)
	}
}
