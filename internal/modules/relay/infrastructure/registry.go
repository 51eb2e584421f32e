package infrastructure

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// GroupRegistry owns the fan-out channel of every known group. Groups are
// created lazily by joiners and live until the process exits, unless an idle
// TTL is configured.
type GroupRegistry struct {
	mu       sync.Mutex
	groups   map[string]*FanoutChannel
	capacity int
	idleTTL  time.Duration
	closed   bool
	now      func() time.Time
}

type RegistryOption func(*GroupRegistry)

// WithChannelCapacity sets the backlog of channels created by the registry.
func WithChannelCapacity(capacity int) RegistryOption {
	return func(r *GroupRegistry) {
		if capacity > 0 {
			r.capacity = capacity
		}
	}
}

// WithIdleTTL enables eviction of groups that had no subscribers and no
// traffic for at least ttl. Zero disables eviction.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *GroupRegistry) {
		if ttl > 0 {
			r.idleTTL = ttl
		}
	}
}

func NewGroupRegistry(opts ...RegistryOption) *GroupRegistry {
	r := &GroupRegistry{
		groups:   make(map[string]*FanoutChannel),
		capacity: DefaultChannelCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the group's channel, creating it when absent.
func (r *GroupRegistry) GetOrCreate(groupID string) (*FanoutChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(groupID)
}

func (r *GroupRegistry) getOrCreateLocked(groupID string) (*FanoutChannel, error) {
	if r.closed {
		return nil, ErrChannelClosed
	}
	if ch, ok := r.groups[groupID]; ok {
		return ch, nil
	}
	ch := NewFanoutChannel(groupID, r.capacity)
	ch.now = r.now
	ch.lastActivity = r.now()
	r.groups[groupID] = ch
	slog.Info("group created", slog.String("groupId", groupID), slog.Int("capacity", r.capacity))
	return ch, nil
}

// Subscribe gets or creates the group and subscribes to it in one critical
// section, so a concurrent eviction can never close the channel in between.
func (r *GroupRegistry) Subscribe(groupID string) (*FanoutChannel, *Receiver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, err := r.getOrCreateLocked(groupID)
	if err != nil {
		return nil, nil, err
	}
	rx, err := ch.Subscribe()
	if err != nil {
		return nil, nil, err
	}
	return ch, rx, nil
}

// Lookup returns the group's channel without creating it.
func (r *GroupRegistry) Lookup(groupID string) (*FanoutChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.groups[groupID]
	return ch, ok
}

// List returns the known group ids in lexical order.
func (r *GroupRegistry) List() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// EvictIdle removes and closes groups idle for longer than the configured TTL.
func (r *GroupRegistry) EvictIdle() []string {
	if r.idleTTL <= 0 {
		return nil
	}
	idleSince := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []string
	for id, ch := range r.groups {
		ch.mu.Lock()
		idle := ch.closeIfIdleLocked(idleSince)
		ch.mu.Unlock()
		if idle {
			delete(r.groups, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		sort.Strings(evicted)
		slog.Info("idle groups evicted", slog.String("groups", strings.Join(evicted, ",")), slog.Int("remaining", len(r.groups)))
	}
	return evicted
}

// RunSweeper calls EvictIdle every interval until ctx is done. It returns
// immediately when eviction is disabled.
func (r *GroupRegistry) RunSweeper(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}

// Close closes every channel, which ends every session attached to them.
func (r *GroupRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, ch := range r.groups {
		ch.Close()
	}
	slog.Info("group registry closed", slog.Int("groups", len(r.groups)))
}
