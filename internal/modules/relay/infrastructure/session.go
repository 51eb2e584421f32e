package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"mesaYaRelay/internal/modules/relay/domain"
	"mesaYaRelay/internal/shared/logging"
)

const (
	DefaultOutboundQueue = 100
	writeWait            = 10 * time.Second
	closeGrace           = time.Second
)

type SessionState int32

const (
	StateConnecting SessionState = iota
	StateJoined
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SessionConfig tunes the per-connection pumps. Zero durations and rates
// disable the corresponding feature.
type SessionConfig struct {
	OutboundQueue int
	PingInterval  time.Duration
	IdleTimeout   time.Duration
	ReadLimit     int64
	InboundRate   float64
	InboundBurst  int
}

// Session relays one websocket connection to and from its group.
type Session struct {
	id       string
	conn     *websocket.Conn
	registry *GroupRegistry
	member   domain.Member
	cfg      SessionConfig
	limiter  *rate.Limiter
	state    atomic.Int32
	log      *slog.Logger
}

func NewSession(conn *websocket.Conn, registry *GroupRegistry, member domain.Member, cfg SessionConfig) *Session {
	if cfg.OutboundQueue <= 0 {
		cfg.OutboundQueue = DefaultOutboundQueue
	}
	s := &Session{
		id:       uuid.NewString(),
		conn:     conn,
		registry: registry,
		member:   member,
		cfg:      cfg,
	}
	if cfg.InboundRate > 0 {
		burst := cfg.InboundBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.InboundRate), burst)
	}
	s.log = slog.With(
		slog.String("sessionId", s.id),
		slog.String("groupId", member.GroupID),
		slog.Int("tableNumber", int(member.TableNumber)),
		slog.Bool("authenticated", member.Authenticated),
	)
	if member.Subject != "" {
		s.log = s.log.With(slog.String("userId", member.Subject))
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Member() domain.Member { return s.member }

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
	s.log.Log(context.Background(), logging.LevelTrace, "ws session state", slog.String("state", state.String()))
}

// Run joins the group, relays frames until either side stops, then announces
// the departure. It owns the connection and always closes it.
func (s *Session) Run(ctx context.Context) error {
	ch, rx, err := s.registry.Subscribe(s.member.GroupID)
	if err != nil {
		_ = s.conn.Close()
		s.setState(StateClosed)
		return fmt.Errorf("join group %s: %w", s.member.GroupID, err)
	}
	defer rx.Close()
	s.setState(StateJoined)

	if _, err := ch.Publish(s.member.JoinAnnouncement()); err != nil {
		_ = s.conn.Close()
		s.setState(StateClosed)
		return fmt.Errorf("announce join: %w", err)
	}
	s.log.Info("ws client joined group", slog.String("role", s.member.Role), slog.String("policy", s.member.Policy().String()))
	s.setState(StateActive)

	queue := make(chan string, s.cfg.OutboundQueue)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.outboundPump(gctx, rx, queue) })
	g.Go(func() error { return s.writePump(gctx, queue) })
	g.Go(func() error { return s.inboundPump(gctx, ch) })
	g.Go(func() error {
		<-gctx.Done()
		s.setState(StateClosing)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeGrace))
		return s.conn.Close()
	})
	cause := g.Wait()

	if _, err := ch.Publish(s.member.LeaveAnnouncement()); err != nil && !errors.Is(err, ErrChannelClosed) {
		s.log.Warn("ws leave announcement failed", slog.Any("error", err))
	}
	s.setState(StateClosed)

	if isExpectedClose(cause) {
		s.log.Info("ws client left group")
		return nil
	}
	s.log.Warn("ws client left group", slog.Any("error", cause))
	return cause
}

func (s *Session) outboundPump(ctx context.Context, rx *Receiver, queue chan<- string) error {
	policy := s.member.Policy()
	for {
		payload, err := rx.Recv(ctx)
		if err != nil {
			var lag *LagError
			if errors.As(err, &lag) {
				s.log.Warn("ws session lagging behind group", slog.Uint64("skipped", lag.Skipped))
				continue
			}
			return fmt.Errorf("receive: %w", err)
		}
		if !domain.ParseEnvelope(payload).Deliverable(policy, s.member.TableNumber) {
			continue
		}
		select {
		case queue <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) writePump(ctx context.Context, queue <-chan string) error {
	var ping <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-queue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-ping:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (s *Session) inboundPump(ctx context.Context, ch *FanoutChannel) error {
	if s.cfg.ReadLimit > 0 {
		s.conn.SetReadLimit(s.cfg.ReadLimit)
	}
	s.extendReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.extendReadDeadline()
		if messageType != websocket.TextMessage {
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if _, err := ch.Publish(s.member.WrapInbound(string(data))); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
}

func (s *Session) extendReadDeadline() {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
}

func isExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			return true
		}
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) || errors.Is(err, ErrChannelClosed)
}
