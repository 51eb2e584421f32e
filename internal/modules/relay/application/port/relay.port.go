package port

import (
	"context"
	"errors"
)

var (
	// ErrGroupNotFound is returned when an ingest targets a group nobody ever joined.
	ErrGroupNotFound = errors.New("group not found")
	// ErrPublishFailed is returned when the group exists but its channel refused the message.
	ErrPublishFailed = errors.New("failed to send message")
)

// GroupPublisher is one group's broadcast stream as seen by the ingest path.
type GroupPublisher interface {
	Publish(payload string) (int, error)
}

// GroupDirectory resolves existing groups without creating them.
type GroupDirectory interface {
	Lookup(groupID string) (GroupPublisher, bool)
	List() []string
}

// TopicHandler handles raw payloads arriving on one broker topic or subject.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, payload []byte) error
}
