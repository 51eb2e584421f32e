package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const DefaultChannelCapacity = 100

var (
	ErrChannelClosed  = errors.New("fanout channel closed")
	ErrReceiverClosed = errors.New("fanout receiver closed")
)

// LagError is returned by Receiver.Recv when the receiver fell behind the
// channel's backlog. The receiver continues from the oldest retained entry.
type LagError struct {
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("fanout receiver lagged, skipped %d messages", e.Skipped)
}

// FanoutChannel is a bounded broadcast stream for one group. Publishers never
// block on receivers: each receiver tracks its own position in a ring of the
// last capacity payloads and is told how much it skipped when it falls behind.
type FanoutChannel struct {
	groupID string

	mu           sync.Mutex
	ring         []string
	tail         uint64 // sequence number of the next publish
	subscribers  int
	closed       bool
	signal       chan struct{}
	lastActivity time.Time
	now          func() time.Time
}

func NewFanoutChannel(groupID string, capacity int) *FanoutChannel {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &FanoutChannel{
		groupID:      groupID,
		ring:         make([]string, capacity),
		signal:       make(chan struct{}),
		lastActivity: time.Now(),
		now:          time.Now,
	}
}

func (ch *FanoutChannel) GroupID() string { return ch.groupID }

func (ch *FanoutChannel) Capacity() int { return len(ch.ring) }

// Publish appends payload and wakes every waiting receiver. It returns the
// number of receivers subscribed at publish time; zero is not an error.
func (ch *FanoutChannel) Publish(payload string) (int, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return 0, ErrChannelClosed
	}
	ch.ring[ch.tail%uint64(len(ch.ring))] = payload
	ch.tail++
	ch.lastActivity = ch.now()
	close(ch.signal)
	ch.signal = make(chan struct{})
	return ch.subscribers, nil
}

// Subscribe returns a receiver positioned after the latest published payload.
func (ch *FanoutChannel) Subscribe() (*Receiver, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil, ErrChannelClosed
	}
	ch.subscribers++
	ch.lastActivity = ch.now()
	return &Receiver{ch: ch, next: ch.tail}, nil
}

func (ch *FanoutChannel) Subscribers() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.subscribers
}

func (ch *FanoutChannel) LastActivity() time.Time {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.lastActivity
}

// Close stops the channel. Receivers drain what they have not read yet and
// then get ErrChannelClosed.
func (ch *FanoutChannel) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	ch.closed = true
	close(ch.signal)
}

func (ch *FanoutChannel) closeIfIdleLocked(idleSince time.Time) bool {
	if ch.closed || ch.subscribers > 0 || ch.lastActivity.After(idleSince) {
		return false
	}
	ch.closed = true
	close(ch.signal)
	return true
}

func (ch *FanoutChannel) unsubscribe() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.subscribers > 0 {
		ch.subscribers--
	}
	ch.lastActivity = ch.now()
}

// Receiver is one subscriber's cursor into a FanoutChannel. It is not safe for
// concurrent use by multiple goroutines.
type Receiver struct {
	ch        *FanoutChannel
	next      uint64
	closeOnce sync.Once
	closed    bool
}

// Recv blocks until the next payload is available, the receiver lagged, the
// channel closed or ctx is done.
func (r *Receiver) Recv(ctx context.Context) (string, error) {
	for {
		ch := r.ch
		ch.mu.Lock()
		if r.closed {
			ch.mu.Unlock()
			return "", ErrReceiverClosed
		}
		capacity := uint64(len(ch.ring))
		if ch.tail > capacity && r.next < ch.tail-capacity {
			oldest := ch.tail - capacity
			skipped := oldest - r.next
			r.next = oldest
			ch.mu.Unlock()
			return "", &LagError{Skipped: skipped}
		}
		if r.next < ch.tail {
			payload := ch.ring[r.next%capacity]
			r.next++
			ch.mu.Unlock()
			return payload, nil
		}
		if ch.closed {
			ch.mu.Unlock()
			return "", ErrChannelClosed
		}
		wait := ch.signal
		ch.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close unsubscribes the receiver. It is safe to call more than once.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() {
		r.ch.mu.Lock()
		r.closed = true
		r.ch.mu.Unlock()
		r.ch.unsubscribe()
	})
}
