package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mesaYaRelay/internal/modules/relay/application/port"
	"mesaYaRelay/internal/modules/relay/domain"
)

// IngestUseCase publishes server messages into groups that already exist.
type IngestUseCase struct {
	directory port.GroupDirectory
}

func NewIngestUseCase(directory port.GroupDirectory) *IngestUseCase {
	return &IngestUseCase{directory: directory}
}

// Execute returns the number of members subscribed when the message was
// published. Zero members is a success.
func (uc *IngestUseCase) Execute(ctx context.Context, msg domain.ServerMessage) (int, error) {
	_, span := tracer().Start(ctx, "relay.ingest",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("relay.group_id", msg.GroupID),
			attribute.String("relay.message_type", msg.MessageType),
			attribute.Bool("relay.targeted", msg.Targeted()),
		),
	)
	defer span.End()

	if err := msg.Validate(); err != nil {
		recordError(span, err)
		return 0, err
	}
	ch, ok := uc.directory.Lookup(msg.GroupID)
	if !ok {
		err := fmt.Errorf("%w: %s", port.ErrGroupNotFound, msg.GroupID)
		recordError(span, err)
		return 0, err
	}
	payload, err := msg.Encode()
	if err != nil {
		err = fmt.Errorf("%w: %w", port.ErrPublishFailed, err)
		recordError(span, err)
		return 0, err
	}
	receivers, err := ch.Publish(payload)
	if err != nil {
		err = fmt.Errorf("%w: %w", port.ErrPublishFailed, err)
		recordError(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("relay.receivers", receivers))
	slog.Debug("server message published",
		slog.String("groupId", msg.GroupID),
		slog.String("messageType", msg.MessageType),
		slog.Any("tables", msg.TableNumber),
		slog.Int("receivers", receivers),
	)
	return receivers, nil
}
