// Package session runs one game: it turns key presses into clock actions,
// keeps the displayed time-control labels in step with the engine, and
// reports what happened to the event bus and metrics.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
	"github.com/BYTE-6D65/chessclock/pkg/config"
	"github.com/BYTE-6D65/chessclock/pkg/engine"
	"github.com/BYTE-6D65/chessclock/pkg/event"
	"github.com/BYTE-6D65/chessclock/pkg/keymap"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/telemetry"
	"github.com/BYTE-6D65/chessclock/pkg/timecontrol"
)

// Snapshot is everything a display needs for one frame.
type Snapshot struct {
	Times     side.Pair[time.Duration]
	Flagged   side.Pair[bool]
	Active    side.Side
	Running   bool
	HalfMoves int
	Labels    side.Pair[string]
}

// Session is safe for concurrent use.
type Session struct {
	id         string
	engine     *engine.Locked
	keys       *keymap.Keymap
	addSeconds uint

	bus     event.Bus
	codec   event.Codec
	metrics *telemetry.Metrics

	mu        sync.Mutex
	control   timecontrol.TimeControl // as displayed; mirrored by swaps
	flagSeen  side.Pair[bool]
	flagStamp clock.MonoTime // newest state checkFlags has seen
}

// Option configures a Session.
type Option func(*Session)

// WithBus publishes clock events to bus.
func WithBus(bus event.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// WithMetrics records clock activity on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithKeymap replaces the keymap built from the configuration.
func WithKeymap(km *keymap.Keymap) Option {
	return func(s *Session) {
		s.keys = km
	}
}

// New creates a paused session from cfg. Errors wrap
// timecontrol.ErrInvalid when the configured times do not parse.
func New(cfg config.Config, clk clock.Clock, opts ...Option) (*Session, error) {
	tc, err := cfg.TimeControl()
	if err != nil {
		return nil, err
	}
	e, err := engine.New(tc, clk)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:         uuid.NewString(),
		engine:     engine.NewLocked(e),
		addSeconds: cfg.AddSeconds,
		codec:      event.JSONCodec{},
		control:    tc,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.keys == nil {
		if s.keys, err = cfg.Keymap(); err != nil {
			return nil, fmt.Errorf("keymap: %w", err)
		}
	}
	if !s.keys.Complete() {
		log.Printf("[session %s] keymap incomplete, unbound: %v", s.id, s.keys.Missing())
	}
	return s, nil
}

// ID identifies the session in events.
func (s *Session) ID() string {
	return s.id
}

// Keymap returns the active key bindings.
func (s *Session) Keymap() *keymap.Keymap {
	return s.keys
}

// HandleKey performs the action bound to key. It reports false when the
// key is unbound.
func (s *Session) HandleKey(ctx context.Context, key string) (keymap.Action, bool) {
	action, ok := s.keys.Lookup(key)
	if !ok {
		return action, false
	}
	if err := s.Do(ctx, action); err != nil {
		log.Printf("[session %s] %s: %v", s.id, action, err)
	}
	return action, true
}

// Do applies action to the clock. Quit changes nothing here; the host
// decides what quitting means. The returned error comes from publishing
// the resulting event; the action itself cannot fail.
func (s *Session) Do(ctx context.Context, action keymap.Action) error {
	var timer *telemetry.Timer
	if s.metrics != nil {
		timer = telemetry.NewTimer()
	}

	var (
		typ     string
		payload event.Payload
		st      engine.State
	)

	switch action {
	case keymap.PressLeft, keymap.PressRight:
		pressed := side.Left
		if action == keymap.PressRight {
			pressed = side.Right
		}
		var before engine.State
		s.engine.Do(func(e *engine.Engine) {
			before = e.Snapshot()
			e.Press(pressed)
			st = e.Snapshot()
		})
		typ = event.TypePress
		payload.Side = pressed.String()
		payload.Credited = st.HalfMoves > before.HalfMoves
		if s.metrics != nil {
			s.metrics.ObservePress(pressed, payload.Credited)
		}

	case keymap.AddTimeLeft, keymap.AddTimeRight:
		target := side.Left
		if action == keymap.AddTimeRight {
			target = side.Right
		}
		s.engine.Do(func(e *engine.Engine) {
			e.AddTime(target, s.addSeconds)
			st = e.Snapshot()
		})
		typ = event.TypeAddTime
		payload.Side = target.String()
		payload.Seconds = s.addSeconds

	case keymap.PlayPause:
		s.engine.Do(func(e *engine.Engine) {
			e.ToggleRun()
			st = e.Snapshot()
		})
		typ = event.TypePause
		if st.Running {
			typ = event.TypeResume
		}

	case keymap.SwapSides:
		var swapped bool
		s.engine.Do(func(e *engine.Engine) {
			swapped = e.SwapSides()
			st = e.Snapshot()
		})
		typ = event.TypeSwapRefused
		if swapped {
			typ = event.TypeSwap
			s.mu.Lock()
			s.control = s.control.Mirrored()
			s.mu.Unlock()
		}

	case keymap.Reset:
		s.engine.Do(func(e *engine.Engine) {
			e.Reset()
			st = e.Snapshot()
		})
		typ = event.TypeReset
		s.mu.Lock()
		s.control = s.engine.Control()
		s.mu.Unlock()

	case keymap.Quit:
		if s.metrics != nil {
			s.metrics.ObserveAction(action.String())
		}
		return nil

	default:
		return fmt.Errorf("unknown action %s", action)
	}

	if s.metrics != nil {
		s.metrics.ObserveAction(action.String())
		s.metrics.SetState(st.Running, st.HalfMoves)
		timer.ObserveWithLabels(s.metrics.ActionDuration, action.String())
	}

	fillPayload(&payload, st)
	if err := s.publish(ctx, typ, payload); err != nil {
		return err
	}
	return s.checkFlags(ctx, st)
}

// Snapshot reads the clock and reports any side that has just flagged.
func (s *Session) Snapshot(ctx context.Context) Snapshot {
	st := s.engine.Snapshot()
	if err := s.checkFlags(ctx, st); err != nil {
		log.Printf("[session %s] flag event: %v", s.id, err)
	}

	return Snapshot{
		Times:     st.Remaining,
		Flagged:   st.Flagged(),
		Active:    st.Active,
		Running:   st.Running,
		HalfMoves: st.HalfMoves,
		Labels:    s.Labels(),
	}
}

// Times returns the reconciled remaining time per side.
func (s *Session) Times() side.Pair[time.Duration] {
	return s.engine.Times()
}

// Labels returns the "base + increment" label of each side as currently
// seated.
func (s *Session) Labels() side.Pair[string] {
	s.mu.Lock()
	tc := s.control
	s.mu.Unlock()

	return side.Map(tc.Base, func(sd side.Side, _ time.Duration) string {
		return tc.Label(sd)
	})
}

// checkFlags publishes clock.flag for every side whose flag rose since
// the last check. A side whose time is restored is re-armed.
func (s *Session) checkFlags(ctx context.Context, st engine.State) error {
	flagged := st.Flagged()

	s.mu.Lock()
	if st.Stamp < s.flagStamp {
		s.mu.Unlock()
		return nil
	}
	s.flagStamp = st.Stamp

	var rising []side.Side
	for _, sd := range side.All {
		if flagged.Of(sd) && !s.flagSeen.Of(sd) {
			rising = append(rising, sd)
		}
	}
	s.flagSeen = flagged
	s.mu.Unlock()

	for _, sd := range rising {
		if s.metrics != nil {
			s.metrics.ObserveFlag(sd)
		}
		payload := event.Payload{Side: sd.String()}
		fillPayload(&payload, st)
		if err := s.publish(ctx, event.TypeFlag, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) publish(ctx context.Context, typ string, payload event.Payload) error {
	if s.bus == nil {
		return nil
	}
	evt, err := event.NewEvent(typ, s.id, payload, s.codec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}
	return nil
}

func fillPayload(p *event.Payload, st engine.State) {
	p.Active = st.Active.String()
	p.Running = st.Running
	p.HalfMoves = st.HalfMoves
	p.Remaining = event.NewTimes(st.Remaining.Left, st.Remaining.Right)
}
