package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mesaYaRelay/internal/modules/relay/application/port"
	"mesaYaRelay/internal/modules/relay/application/usecase"
	"mesaYaRelay/internal/modules/relay/domain"
)

// IngestStreamHandler publishes server messages arriving on a broker topic or
// subject. Payloads are validated like POST /api/message bodies.
type IngestStreamHandler struct {
	topic    string
	ingestUC *usecase.IngestUseCase
}

func NewIngestStreamHandler(topic string, ingestUC *usecase.IngestUseCase) *IngestStreamHandler {
	return &IngestStreamHandler{topic: strings.TrimSpace(topic), ingestUC: ingestUC}
}

func (h *IngestStreamHandler) Topic() string { return h.topic }

func (h *IngestStreamHandler) Handle(ctx context.Context, payload []byte) error {
	msg, err := domain.DecodeServerMessage(payload)
	if err != nil {
		return fmt.Errorf("decode server message on %s: %w", h.topic, err)
	}
	receivers, err := h.ingestUC.Execute(ctx, msg)
	if err != nil {
		return err
	}
	slog.Debug("stream message relayed",
		slog.String("topic", h.topic),
		slog.String("groupId", msg.GroupID),
		slog.Int("receivers", receivers),
	)
	return nil
}

var _ port.TopicHandler = (*IngestStreamHandler)(nil)
