package broker

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// MessageHandler receives the topic and raw value of one consumed record.
type MessageHandler func(ctx context.Context, topic string, value []byte) error

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
	}
}

// Consume reads until ctx is done. Read and handler errors are logged and
// never stop the loop.
func (c *KafkaConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			continue
		}
		slog.Debug("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.Int("bytes", len(m.Value)),
		)
		if err := handler(ctx, m.Topic, m.Value); err != nil {
			slog.Warn("kafka handler error", slog.String("topic", m.Topic), slog.Int64("offset", m.Offset), slog.Any("error", err))
		}
	}
}
