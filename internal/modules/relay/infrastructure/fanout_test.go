package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func recvWithin(t *testing.T, rx *Receiver, d time.Duration) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return rx.Recv(ctx)
}

func TestFanoutPublishWithoutSubscribers(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 4)
	n, err := ch.Publish("hello")
	if err != nil {
		t.Fatalf("publishing to an empty group must not fail: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero receivers, got %d", n)
	}
}

func TestFanoutDeliversInOrderToEveryReceiver(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 8)
	a, _ := ch.Subscribe()
	b, _ := ch.Subscribe()

	for i := 0; i < 5; i++ {
		n, err := ch.Publish(fmt.Sprintf("m%d", i))
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 receivers, got %d", n)
		}
	}
	for _, rx := range []*Receiver{a, b} {
		for i := 0; i < 5; i++ {
			got, err := recvWithin(t, rx, time.Second)
			if err != nil {
				t.Fatalf("recv: %v", err)
			}
			if want := fmt.Sprintf("m%d", i); got != want {
				t.Fatalf("expected %s got %s", want, got)
			}
		}
	}
}

func TestFanoutSubscriberStartsAtTail(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 8)
	_, _ = ch.Publish("before")
	rx, _ := ch.Subscribe()
	_, _ = ch.Publish("after")

	got, err := recvWithin(t, rx, time.Second)
	if err != nil || got != "after" {
		t.Fatalf("expected only messages published after subscribe, got %q %v", got, err)
	}
}

func TestFanoutSlowReceiverLagsWithoutBlocking(t *testing.T) {
	t.Parallel()

	const capacity = 100
	ch := NewFanoutChannel("r1", capacity)
	slow, _ := ch.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 250; i++ {
			if _, err := ch.Publish(fmt.Sprintf("m%d", i)); err != nil {
				t.Errorf("publish: %v", err)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked by a slow receiver")
	}

	fresh, _ := ch.Subscribe()
	_, _ = ch.Publish("m250")
	if got, err := recvWithin(t, fresh, time.Second); err != nil || got != "m250" {
		t.Fatalf("a slow receiver must not affect others, got %q %v", got, err)
	}

	var lag *LagError
	_, err := recvWithin(t, slow, time.Second)
	if !errors.As(err, &lag) {
		t.Fatalf("expected LagError, got %v", err)
	}
	if lag.Skipped != 151 {
		t.Fatalf("expected 151 skipped, got %d", lag.Skipped)
	}
	for i := 151; i <= 250; i++ {
		got, err := recvWithin(t, slow, time.Second)
		if err != nil {
			t.Fatalf("recv after lag: %v", err)
		}
		if want := fmt.Sprintf("m%d", i); got != want {
			t.Fatalf("expected %s got %s", want, got)
		}
	}
}

func TestFanoutRecvHonoursContext(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 4)
	rx, _ := ch.Subscribe()
	_, err := recvWithin(t, rx, 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFanoutRecvWakesOnPublish(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 4)
	rx, _ := ch.Subscribe()
	result := make(chan string, 1)
	go func() {
		got, _ := recvWithin(t, rx, 2*time.Second)
		result <- got
	}()
	time.Sleep(20 * time.Millisecond)
	_, _ = ch.Publish("wake")
	if got := <-result; got != "wake" {
		t.Fatalf("expected wake, got %q", got)
	}
}

func TestFanoutCloseDrainsThenFails(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 4)
	rx, _ := ch.Subscribe()
	_, _ = ch.Publish("last")
	ch.Close()

	if _, err := ch.Publish("late"); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on publish, got %v", err)
	}
	if _, err := ch.Subscribe(); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on subscribe, got %v", err)
	}
	if got, err := recvWithin(t, rx, time.Second); err != nil || got != "last" {
		t.Fatalf("expected pending payload before close error, got %q %v", got, err)
	}
	if _, err := recvWithin(t, rx, time.Second); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestReceiverCloseUnsubscribes(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 4)
	rx, _ := ch.Subscribe()
	if ch.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", ch.Subscribers())
	}
	rx.Close()
	rx.Close()
	if ch.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", ch.Subscribers())
	}
	if _, err := recvWithin(t, rx, time.Second); !errors.Is(err, ErrReceiverClosed) {
		t.Fatalf("expected ErrReceiverClosed, got %v", err)
	}
}

func TestFanoutConcurrentPublishersKeepPerChannelOrder(t *testing.T) {
	t.Parallel()

	ch := NewFanoutChannel("r1", 1000)
	a, _ := ch.Subscribe()
	b, _ := ch.Subscribe()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, _ = ch.Publish(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	for i := 0; i < 400; i++ {
		ga, err := recvWithin(t, a, time.Second)
		if err != nil {
			t.Fatalf("recv a: %v", err)
		}
		gb, err := recvWithin(t, b, time.Second)
		if err != nil {
			t.Fatalf("recv b: %v", err)
		}
		if ga != gb {
			t.Fatalf("receivers disagree on order at %d: %s vs %s", i, ga, gb)
		}
	}
}
