package infrastructure

import (
	"context"
	"errors"
	"testing"
)

type stubTopicHandler struct {
	topic string
	got   [][]byte
	err   error
}

func (h *stubTopicHandler) Topic() string { return h.topic }

func (h *stubTopicHandler) Handle(_ context.Context, payload []byte) error {
	h.got = append(h.got, payload)
	return h.err
}

func TestHandlerRegistryDispatchesByTopic(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := &stubTopicHandler{topic: "b.topic"}
	b := &stubTopicHandler{topic: "a.topic", err: boom}
	r := NewHandlerRegistry()
	r.Register(a)
	r.Register(b)

	if topics := r.Topics(); len(topics) != 2 || topics[0] != "a.topic" || topics[1] != "b.topic" {
		t.Fatalf("unexpected topics: %v", topics)
	}
	if err := r.Dispatch(context.Background(), "b.topic", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Dispatch(context.Background(), "a.topic", []byte("y")); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if err := r.Dispatch(context.Background(), "unknown", []byte("z")); err != nil {
		t.Fatalf("unknown topics are dropped, got %v", err)
	}
	if len(a.got) != 1 || string(a.got[0]) != "x" || len(b.got) != 1 {
		t.Fatal("payloads routed to the wrong handler")
	}
}
