package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGroupRegistryConcurrentGetOrCreateYieldsOneChannel(t *testing.T) {
	t.Parallel()

	r := NewGroupRegistry()
	const callers = 64
	results := make([]*FanoutChannel, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ch, err := r.GetOrCreate("unseen")
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			results[i] = ch
		}(i)
	}
	close(start)
	wg.Wait()

	for i, ch := range results {
		if ch == nil || ch != results[0] {
			t.Fatalf("caller %d observed a different channel", i)
		}
	}
	if groups := r.List(); len(groups) != 1 || groups[0] != "unseen" {
		t.Fatalf("unexpected groups: %v", groups)
	}
}

func TestGroupRegistryLookupNeverCreates(t *testing.T) {
	t.Parallel()

	r := NewGroupRegistry()
	if _, ok := r.Lookup("ghost"); ok {
		t.Fatal("lookup must not find an unknown group")
	}
	if len(r.List()) != 0 {
		t.Fatal("lookup must not create groups")
	}
	created, _ := r.GetOrCreate("r1")
	found, ok := r.Lookup("r1")
	if !ok || found != created {
		t.Fatal("lookup must return the created channel")
	}
}

func TestGroupRegistryListSorted(t *testing.T) {
	t.Parallel()

	r := NewGroupRegistry(WithChannelCapacity(8))
	for _, id := range []string{"c", "a", "b"} {
		if _, _, err := r.Subscribe(id); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	got := r.List()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
	ch, _ := r.Lookup("a")
	if ch.Capacity() != 8 {
		t.Fatalf("expected capacity 8, got %d", ch.Capacity())
	}
}

func TestGroupRegistryEvictionDisabledByDefault(t *testing.T) {
	t.Parallel()

	r := NewGroupRegistry()
	_, _ = r.GetOrCreate("r1")
	if evicted := r.EvictIdle(); len(evicted) != 0 {
		t.Fatalf("eviction must be disabled by default, evicted %v", evicted)
	}
	if _, ok := r.Lookup("r1"); !ok {
		t.Fatal("group must survive without subscribers")
	}
}

func TestGroupRegistryEvictsOnlyIdleEmptyGroups(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	r := NewGroupRegistry(WithIdleTTL(time.Minute))
	r.now = clock

	idle, _ := r.GetOrCreate("idle")
	_, rx, _ := r.Subscribe("busy")
	_, _ = r.GetOrCreate("recent")

	now = now.Add(2 * time.Minute)
	recent, _ := r.Lookup("recent")
	_, _ = recent.Publish("still here")

	evicted := r.EvictIdle()
	if len(evicted) != 1 || evicted[0] != "idle" {
		t.Fatalf("expected only idle group evicted, got %v", evicted)
	}
	if _, err := idle.Publish("x"); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("evicted channel must be closed, got %v", err)
	}
	if _, ok := r.Lookup("busy"); !ok {
		t.Fatal("group with subscribers must not be evicted")
	}

	rx.Close()
	now = now.Add(2 * time.Minute)
	evicted = r.EvictIdle()
	if len(evicted) != 2 {
		t.Fatalf("expected busy and recent evicted after going idle, got %v", evicted)
	}
}

func TestGroupRegistryCloseEndsReceivers(t *testing.T) {
	t.Parallel()

	r := NewGroupRegistry()
	_, rx, err := r.Subscribe("r1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := rx.Recv(ctx); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
	if _, _, err := r.Subscribe("r2"); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("closed registry must refuse joins, got %v", err)
	}
}

func TestGroupRegistryRunSweeperReturnsWhenDisabled(t *testing.T) {
	t.Parallel()

	r := NewGroupRegistry()
	done := make(chan struct{})
	go func() {
		r.RunSweeper(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper should return immediately when eviction is disabled")
	}
}
