package event

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// ErrBusClosed is returned by operations on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus fans clock events out to subscribers.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, filter Filter) (Subscription, error)
	Close() error
}

// Filter selects events for a subscription. Types and Sources accept
// filepath.Match patterns such as "clock.swap*". Empty fields match all.
type Filter struct {
	Types    []string
	Sources  []string
	Metadata map[string]string
}

// Subscription is a live feed of matching events.
type Subscription interface {
	// Events is closed when the subscription or its bus is closed
	Events() <-chan Event
	Close() error
}

// InMemoryBus delivers events over buffered channels.
type InMemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*subscription
	nextID        uint64
	closed        bool
	bufferSize    int
	dropSlow      bool // drop events for full subscribers instead of blocking
	dropped       atomic.Uint64
}

// BusOption configures an InMemoryBus.
type BusOption func(*InMemoryBus)

// WithBufferSize sets the channel capacity of new subscriptions.
func WithBufferSize(size int) BusOption {
	return func(b *InMemoryBus) {
		b.bufferSize = size
	}
}

// WithDropSlow makes Publish drop events for subscribers whose buffer is
// full rather than wait for them.
func WithDropSlow(drop bool) BusOption {
	return func(b *InMemoryBus) {
		b.dropSlow = drop
	}
}

// NewInMemoryBus creates a bus. By default subscriptions buffer 64 events
// and Publish blocks on a full subscriber.
func NewInMemoryBus(opts ...BusOption) *InMemoryBus {
	bus := &InMemoryBus{
		subscriptions: make(map[uint64]*subscription),
		bufferSize:    64,
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Publish delivers evt to every matching subscriber.
func (b *InMemoryBus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subscriptions {
		if !sub.matches(evt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !sub.send(ctx, evt, b.dropSlow) {
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers a new subscription for events matching filter.
func (b *InMemoryBus) Subscribe(ctx context.Context, filter Filter) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	b.nextID++
	sub := &subscription{
		id:     b.nextID,
		bus:    b,
		filter: filter,
		ch:     make(chan Event, b.bufferSize),
	}
	b.subscriptions[sub.id] = sub
	return sub, nil
}

// Close closes every subscription. Closing twice is a no-op.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, sub := range b.subscriptions {
		sub.closeChannel()
	}
	b.subscriptions = nil
	return nil
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (b *InMemoryBus) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of open subscriptions.
func (b *InMemoryBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

type subscription struct {
	id     uint64
	bus    *InMemoryBus
	filter Filter

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *subscription) Events() <-chan Event {
	return s.ch
}

func (s *subscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.subscriptions, s.id)
	s.closeChannel()
	return nil
}

func (s *subscription) String() string {
	return fmt.Sprintf("sub-%d", s.id)
}

func (s *subscription) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// send reports false when the event was dropped.
func (s *subscription) send(ctx context.Context, evt Event, dropSlow bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}

	if dropSlow {
		select {
		case s.ch <- evt:
			return true
		default:
			return false
		}
	}

	select {
	case s.ch <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *subscription) matches(evt Event) bool {
	if len(s.filter.Types) > 0 && !matchesAny(evt.Type, s.filter.Types) {
		return false
	}
	if len(s.filter.Sources) > 0 && !matchesAny(evt.Source, s.filter.Sources) {
		return false
	}
	for key, value := range s.filter.Metadata {
		if evt.Metadata[key] != value {
			return false
		}
	}
	return true
}

func matchesAny(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, str); err == nil && matched {
			return true
		}
	}
	return false
}

// Drain calls fn for every event on sub until the subscription closes or
// ctx is done.
func Drain(ctx context.Context, sub Subscription, fn func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			fn(evt)
		}
	}
}
