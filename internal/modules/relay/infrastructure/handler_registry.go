package infrastructure

import (
	"context"
	"log/slog"
	"sort"

	"mesaYaRelay/internal/modules/relay/application/port"
)

// HandlerRegistry routes broker payloads to the handler registered for their
// topic. Registration happens before consumers start.
type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

// Topics returns the registered topics in lexical order.
func (r *HandlerRegistry) Topics() []string {
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Dispatch hands payload to the topic's handler. Payloads on unknown topics
// are dropped.
func (r *HandlerRegistry) Dispatch(ctx context.Context, topic string, payload []byte) error {
	handler, ok := r.handlers[topic]
	if !ok {
		slog.Debug("no handler for topic", slog.String("topic", topic))
		return nil
	}
	return handler.Handle(ctx, payload)
}
