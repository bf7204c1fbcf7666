package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case evt, ok := <-sub.Events():
		if !ok {
			t.Fatal("Subscription closed unexpectedly")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
	return Event{}
}

func expectNone(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case evt := <-sub.Events():
		t.Errorf("Unexpected event received: %s %s", evt.Type, evt.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewInMemoryBus(t *testing.T) {
	bus := NewInMemoryBus()
	if bus.bufferSize != 64 {
		t.Errorf("Expected default buffer size 64, got %d", bus.bufferSize)
	}
	if bus.dropSlow {
		t.Error("Expected default dropSlow to be false")
	}

	bus = NewInMemoryBus(WithBufferSize(8), WithDropSlow(true))
	if bus.bufferSize != 8 || !bus.dropSlow {
		t.Errorf("Options not applied: size=%d dropSlow=%t", bus.bufferSize, bus.dropSlow)
	}
}

func TestBus_PublishToSubscribers(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	subs := make([]Subscription, 3)
	for i := range subs {
		sub, err := bus.Subscribe(ctx, Filter{})
		if err != nil {
			t.Fatalf("Subscribe %d failed: %v", i, err)
		}
		defer sub.Close()
		subs[i] = sub
	}

	if err := bus.Publish(ctx, Event{ID: "broadcast", Type: TypePress}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, sub := range subs {
		if got := receive(t, sub); got.ID != "broadcast" {
			t.Errorf("Subscriber %d: expected broadcast, got %s", i, got.ID)
		}
	}
}

func TestBus_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		evt    Event
		want   bool
	}{
		{"empty matches all", Filter{}, Event{Type: TypeReset, Source: "a"}, true},
		{"exact type", Filter{Types: []string{TypeFlag}}, Event{Type: TypeFlag}, true},
		{"other type", Filter{Types: []string{TypeFlag}}, Event{Type: TypePress}, false},
		{"wildcard type", Filter{Types: []string{"clock.swap*"}}, Event{Type: TypeSwapRefused}, true},
		{"source", Filter{Sources: []string{"game-1"}}, Event{Type: TypePress, Source: "game-1"}, true},
		{"other source", Filter{Sources: []string{"game-1"}}, Event{Type: TypePress, Source: "game-2"}, false},
		{
			"metadata",
			Filter{Metadata: map[string]string{"side": "left"}},
			Event{Type: TypePress, Metadata: map[string]string{"side": "left"}},
			true,
		},
		{
			"metadata mismatch",
			Filter{Metadata: map[string]string{"side": "left"}},
			Event{Type: TypePress, Metadata: map[string]string{"side": "right"}},
			false,
		},
		{
			"type and source must both match",
			Filter{Types: []string{"clock.*"}, Sources: []string{"game-1"}},
			Event{Type: TypePress, Source: "game-2"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryBus()
			defer bus.Close()
			ctx := context.Background()

			sub, err := bus.Subscribe(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Subscribe failed: %v", err)
			}
			if err := bus.Publish(ctx, tt.evt); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}

			if tt.want {
				receive(t, sub)
			} else {
				expectNone(t, sub)
			}
		})
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	first, _ := bus.Subscribe(ctx, Filter{})
	second, _ := bus.Subscribe(ctx, Filter{})
	if bus.SubscriberCount() != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	first.Close()
	if _, ok := <-first.Events(); ok {
		t.Error("Closed subscription channel should be closed")
	}

	// A new subscription must not collide with the remaining one.
	third, _ := bus.Subscribe(ctx, Filter{})
	if bus.SubscriberCount() != 2 {
		t.Errorf("Expected 2 subscribers after resubscribe, got %d", bus.SubscriberCount())
	}

	if err := bus.Publish(ctx, Event{ID: "x", Type: TypePause}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	receive(t, second)
	receive(t, third)
}

func TestBus_Close(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()
	sub, _ := bus.Subscribe(ctx, Filter{})

	if err := bus.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("Subscription should be closed with the bus")
	}
	if err := bus.Publish(ctx, Event{}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Expected ErrBusClosed from Publish, got %v", err)
	}
	if _, err := bus.Subscribe(ctx, Filter{}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Expected ErrBusClosed from Subscribe, got %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("Closing a subscription after its bus should not fail: %v", err)
	}
}

func TestBus_PublishWithContextCancel(t *testing.T) {
	bus := NewInMemoryBus(WithBufferSize(1))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := bus.Subscribe(ctx, Filter{})
	defer sub.Close()

	if err := bus.Publish(ctx, Event{ID: "fill"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	cancel()

	if err := bus.Publish(ctx, Event{ID: "late"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBus_DropSlow(t *testing.T) {
	bus := NewInMemoryBus(WithBufferSize(2), WithDropSlow(true))
	defer bus.Close()
	ctx := context.Background()

	sub, _ := bus.Subscribe(ctx, Filter{})
	defer sub.Close()

	for i := 0; i < 10; i++ {
		if err := bus.Publish(ctx, Event{ID: fmt.Sprintf("evt-%d", i)}); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	if got := bus.Dropped(); got != 8 {
		t.Errorf("Expected 8 dropped events, got %d", got)
	}
	if got := receive(t, sub); got.ID != "evt-0" {
		t.Errorf("Expected oldest buffered event first, got %s", got.ID)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	sub, _ := bus.Subscribe(ctx, Filter{})
	defer sub.Close()

	const publishers = 8
	const perPublisher = 100

	received := make(map[string]bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range sub.Events() {
			received[evt.ID] = true
			if len(received) == publishers*perPublisher {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				evt := Event{ID: fmt.Sprintf("pub-%d-%d", id, j), Type: TypePress}
				if err := bus.Publish(ctx, evt); err != nil {
					t.Errorf("Publish failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout: expected %d events, received %d", publishers*perPublisher, len(received))
	}
}

func TestDrain(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()
	sub, _ := bus.Subscribe(ctx, Filter{})

	for _, typ := range []string{TypeResume, TypePress, TypePause} {
		if err := bus.Publish(ctx, Event{Type: typ}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	bus.Close()

	var seen []string
	Drain(ctx, sub, func(evt Event) { seen = append(seen, evt.Type) })

	want := []string{TypeResume, TypePress, TypePause}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("Drain saw %v, want %v", seen, want)
	}
}

func TestDrain_StopsOnContext(t *testing.T) {
	bus := NewInMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := bus.Subscribe(ctx, Filter{})

	finished := make(chan struct{})
	go func() {
		Drain(ctx, sub, func(Event) {})
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Drain did not return after cancel")
	}
}
