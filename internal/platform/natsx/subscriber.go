package natsx

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Dispatcher routes a received payload by subject.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic string, payload []byte) error
}

type Config struct {
	URL      string
	Name     string
	Subjects []string
	// Queue makes replicas share the subjects instead of each receiving every message.
	Queue string
}

// Subscriber feeds NATS subjects into a Dispatcher.
type Subscriber struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

// Start connects and subscribes to every configured subject. It returns a nil
// subscriber when NATS is not configured.
func Start(ctx context.Context, cfg Config, dispatcher Dispatcher) (*Subscriber, error) {
	if cfg.URL == "" || len(cfg.Subjects) == 0 {
		slog.Info("nats ingest disabled")
		return nil, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}

	s := &Subscriber{nc: nc}
	for _, subject := range cfg.Subjects {
		sub, err := s.subscribe(ctx, subject, cfg.Queue, dispatcher)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.subs = append(s.subs, sub)
		slog.Info("nats subscription started", slog.String("subject", subject), slog.String("queue", cfg.Queue))
	}
	return s, nil
}

func (s *Subscriber) subscribe(ctx context.Context, subject, queue string, dispatcher Dispatcher) (*nats.Subscription, error) {
	cb := dispatchTo(ctx, subject, dispatcher)
	if queue != "" {
		return s.nc.QueueSubscribe(subject, queue, cb)
	}
	return s.nc.Subscribe(subject, cb)
}

// dispatchTo routes messages by the subscribed subject, which may be a
// wildcard, rather than by the concrete subject each message arrived on.
func dispatchTo(ctx context.Context, subject string, dispatcher Dispatcher) nats.MsgHandler {
	return func(m *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		if err := dispatcher.Dispatch(ctx, subject, m.Data); err != nil {
			slog.Warn("nats handler error", slog.String("subscription", subject), slog.String("subject", m.Subject), slog.Any("error", err))
		}
	}
}

// Close drains every subscription and the connection. Safe on a nil subscriber.
func (s *Subscriber) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	s.subs = nil
	if err := s.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
