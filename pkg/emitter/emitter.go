// Package emitter delivers clock events to sinks outside the clock.
package emitter

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/BYTE-6D65/chessclock/pkg/event"
)

// ErrUnsupportedEvent is returned by Emit for events a sink does not handle.
var ErrUnsupportedEvent = errors.New("emitter: unsupported event type")

// Emitter is an event sink.
type Emitter interface {
	// ID names the sink in logs
	ID() string

	Emit(ctx context.Context, evt event.Event) error

	// Close releases the sink. Safe to call more than once.
	Close() error
}

// Log writes one line per clock event to a logger.
type Log struct {
	logger *log.Logger
	codec  event.Codec
}

// NewLog creates a Log sink. A nil logger means the standard logger.
func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Default()
	}
	return &Log{logger: logger, codec: event.JSONCodec{}}
}

func (l *Log) ID() string { return "log" }

func (l *Log) Emit(ctx context.Context, evt event.Event) error {
	if !strings.HasPrefix(evt.Type, "clock.") {
		return ErrUnsupportedEvent
	}
	l.logger.Print(event.Describe(evt, l.codec))
	return nil
}

func (l *Log) Close() error { return nil }

// Attach subscribes e to bus and feeds it matching events in the
// background until ctx is done or the bus closes. Emit errors are logged
// and do not stop delivery. The returned channel closes once e is closed.
func Attach(ctx context.Context, bus event.Bus, e Emitter, filter event.Filter) (<-chan struct{}, error) {
	sub, err := bus.Subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()
		defer e.Close()

		event.Drain(ctx, sub, func(evt event.Event) {
			if err := e.Emit(ctx, evt); err != nil {
				log.Printf("[emitter %s] %s: %v", e.ID(), evt.Type, err)
			}
		})
	}()
	return done, nil
}
