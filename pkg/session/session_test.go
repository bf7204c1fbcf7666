package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
	"github.com/BYTE-6D65/chessclock/pkg/config"
	"github.com/BYTE-6D65/chessclock/pkg/event"
	"github.com/BYTE-6D65/chessclock/pkg/keymap"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/telemetry"
	"github.com/BYTE-6D65/chessclock/pkg/timecontrol"
)

type fixture struct {
	session *Session
	fake    *clockwork.FakeClock
	sub     event.Subscription
	metrics *telemetry.Metrics
}

func newFixture(t *testing.T, modify func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	if modify != nil {
		modify(&cfg)
	}

	bus := event.NewInMemoryBus()
	t.Cleanup(func() { bus.Close() })
	sub, err := bus.Subscribe(context.Background(), event.Filter{})
	require.NoError(t, err)

	fake := clockwork.NewFakeClock()
	metrics := telemetry.InitMetrics(prometheus.NewRegistry())

	s, err := New(cfg, clock.New(fake), WithBus(bus), WithMetrics(metrics))
	require.NoError(t, err)

	return &fixture{session: s, fake: fake, sub: sub, metrics: metrics}
}

// next returns the next published event decoded.
func (f *fixture) next(t *testing.T) (string, event.Payload) {
	t.Helper()
	select {
	case evt := <-f.sub.Events():
		var p event.Payload
		require.NoError(t, evt.DecodePayload(&p, event.JSONCodec{}))
		assert.Equal(t, f.session.ID(), evt.Source)
		return evt.Type, p
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
	return "", event.Payload{}
}

func (f *fixture) none(t *testing.T) {
	t.Helper()
	select {
	case evt := <-f.sub.Events():
		t.Errorf("Unexpected event %s", evt.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Time = "0"

	_, err := New(cfg, clock.New(clockwork.NewFakeClock()))
	assert.True(t, errors.Is(err, timecontrol.ErrInvalid), "got %v", err)

	cfg = config.DefaultConfig()
	cfg.Keys = map[string]string{"x": "castle"}
	_, err = New(cfg, clock.New(clockwork.NewFakeClock()))
	assert.Error(t, err)
}

func TestSession_Press(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Increment = "2" })
	ctx := context.Background()

	require.NoError(t, f.session.Do(ctx, keymap.PressLeft))
	typ, p := f.next(t)
	assert.Equal(t, event.TypePress, typ)
	assert.Equal(t, "left", p.Side)
	assert.False(t, p.Credited, "first press earns nothing")
	assert.Equal(t, "right", p.Active)
	assert.True(t, p.Running)

	f.fake.Advance(10 * time.Second)
	require.NoError(t, f.session.Do(ctx, keymap.PressRight))
	typ, p = f.next(t)
	assert.Equal(t, event.TypePress, typ)
	assert.True(t, p.Credited)
	assert.Equal(t, 1, p.HalfMoves)
	assert.Equal(t, int64(9*time.Minute+52*time.Second), p.Remaining.RightNs)

	snap := f.session.Snapshot(ctx)
	assert.Equal(t, side.Left, snap.Active)
	assert.True(t, snap.Running)
	assert.Equal(t, 1, snap.HalfMoves)
	assert.Equal(t, side.Pair[time.Duration]{Left: 10 * time.Minute, Right: 9*time.Minute + 52*time.Second}, snap.Times)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Presses.WithLabelValues("left", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Presses.WithLabelValues("right", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HalfMoves))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Running))
}

func TestSession_HandleKey(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	action, ok := f.session.HandleKey(ctx, " ")
	assert.True(t, ok)
	assert.Equal(t, keymap.PlayPause, action)
	typ, p := f.next(t)
	assert.Equal(t, event.TypeResume, typ)
	assert.True(t, p.Running)

	f.session.HandleKey(ctx, " ")
	typ, _ = f.next(t)
	assert.Equal(t, event.TypePause, typ)

	_, ok = f.session.HandleKey(ctx, "m")
	assert.False(t, ok)
	f.none(t)

	action, ok = f.session.HandleKey(ctx, "esc")
	assert.True(t, ok)
	assert.Equal(t, keymap.Quit, action)
	f.none(t)
}

func TestSession_AddTime(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AddSeconds = 30 })
	ctx := context.Background()

	require.NoError(t, f.session.Do(ctx, keymap.AddTimeRight))
	typ, p := f.next(t)
	assert.Equal(t, event.TypeAddTime, typ)
	assert.Equal(t, "right", p.Side)
	assert.Equal(t, uint(30), p.Seconds)
	assert.Equal(t, 10*time.Minute+30*time.Second, f.session.Times().Right)
	assert.Equal(t, 10*time.Minute, f.session.Times().Left)
}

func TestSession_SwapMirrorsLabels(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.TimeLeft = "5"
		c.IncrementRight = "3"
	})
	ctx := context.Background()

	original := side.Pair[string]{Left: "05:00 + 00", Right: "10:00 + 03"}
	assert.Equal(t, original, f.session.Labels())

	// Running: refused, nothing changes.
	require.NoError(t, f.session.Do(ctx, keymap.PlayPause))
	f.next(t)
	require.NoError(t, f.session.Do(ctx, keymap.SwapSides))
	typ, _ := f.next(t)
	assert.Equal(t, event.TypeSwapRefused, typ)
	assert.Equal(t, original, f.session.Labels())

	require.NoError(t, f.session.Do(ctx, keymap.PlayPause))
	f.next(t)
	require.NoError(t, f.session.Do(ctx, keymap.SwapSides))
	typ, p := f.next(t)
	assert.Equal(t, event.TypeSwap, typ)
	assert.Equal(t, "right", p.Active)

	snap := f.session.Snapshot(ctx)
	assert.Equal(t, side.Pair[string]{Left: "10:00 + 03", Right: "05:00 + 00"}, snap.Labels)
	assert.Equal(t, 10*time.Minute, snap.Times.Left)

	require.NoError(t, f.session.Do(ctx, keymap.Reset))
	typ, p = f.next(t)
	assert.Equal(t, event.TypeReset, typ)
	assert.Equal(t, "left", p.Active)
	assert.Equal(t, original, f.session.Labels())

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Actions.WithLabelValues("swap_sides")))
}

func TestSession_FlagFiresOncePerRise(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Time = "1" })
	ctx := context.Background()

	require.NoError(t, f.session.Do(ctx, keymap.PressLeft))
	f.next(t)

	f.fake.Advance(61 * time.Second)
	snap := f.session.Snapshot(ctx)
	assert.Equal(t, side.Pair[bool]{Left: false, Right: true}, snap.Flagged)
	assert.Equal(t, time.Duration(0), snap.Times.Right)
	assert.True(t, snap.Running, "flagging does not stop the clock")

	typ, p := f.next(t)
	assert.Equal(t, event.TypeFlag, typ)
	assert.Equal(t, "right", p.Side)

	f.session.Snapshot(ctx)
	f.none(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Flags.WithLabelValues("right")))

	// Pressing the flagged side earns no increment and no half-move.
	require.NoError(t, f.session.Do(ctx, keymap.PressRight))
	typ, p = f.next(t)
	assert.Equal(t, event.TypePress, typ)
	assert.False(t, p.Credited)
	f.none(t)

	// Reset re-arms the flag.
	require.NoError(t, f.session.Do(ctx, keymap.Reset))
	f.next(t)
	require.NoError(t, f.session.Do(ctx, keymap.PressLeft))
	f.next(t)
	f.fake.Advance(2 * time.Minute)
	f.session.Snapshot(ctx)
	typ, p = f.next(t)
	assert.Equal(t, event.TypeFlag, typ)
	assert.Equal(t, "right", p.Side)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Flags.WithLabelValues("right")))
}

func TestSession_WithoutBusOrMetrics(t *testing.T) {
	s, err := New(config.DefaultConfig(), clock.New(clockwork.NewFakeClock()))
	require.NoError(t, err)

	ctx := context.Background()
	for _, a := range keymap.Actions {
		assert.NoError(t, s.Do(ctx, a), a.String())
	}
	assert.NotEmpty(t, s.ID())
}

func TestSession_PublishError(t *testing.T) {
	bus := event.NewInMemoryBus()
	bus.Close()

	s, err := New(config.DefaultConfig(), clock.New(clockwork.NewFakeClock()), WithBus(bus))
	require.NoError(t, err)

	err = s.Do(context.Background(), keymap.PressLeft)
	assert.True(t, errors.Is(err, event.ErrBusClosed), "got %v", err)
	assert.True(t, s.Snapshot(context.Background()).Running, "the press still happened")
}

func TestSession_CustomKeymap(t *testing.T) {
	km, err := keymap.New([]string{"x"}, []keymap.Action{keymap.Reset})
	require.NoError(t, err)

	s, err := New(config.DefaultConfig(), clock.New(clockwork.NewFakeClock()), WithKeymap(km))
	require.NoError(t, err)

	assert.Same(t, km, s.Keymap())
	_, ok := s.HandleKey(context.Background(), "a")
	assert.False(t, ok)
}
