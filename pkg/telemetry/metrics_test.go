package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BYTE-6D65/chessclock/pkg/side"
)

func TestMetrics_Observe(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())

	m.ObservePress(side.Left, false)
	m.ObservePress(side.Right, true)
	m.ObservePress(side.Right, true)
	m.ObserveAction("press_right")
	m.ObserveAction("press_right")
	m.ObserveAction("reset")
	m.ObserveFlag(side.Left)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"left uncredited", testutil.ToFloat64(m.Presses.WithLabelValues("left", "false")), 1},
		{"right credited", testutil.ToFloat64(m.Presses.WithLabelValues("right", "true")), 2},
		{"press_right actions", testutil.ToFloat64(m.Actions.WithLabelValues("press_right")), 2},
		{"reset actions", testutil.ToFloat64(m.Actions.WithLabelValues("reset")), 1},
		{"left flags", testutil.ToFloat64(m.Flags.WithLabelValues("left")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}

	if n := testutil.CollectAndCount(m.Presses); n != 2 {
		t.Errorf("Expected 2 press series, got %d", n)
	}
}

func TestMetrics_SetState(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())

	m.SetState(true, 4)
	if testutil.ToFloat64(m.Running) != 1 || testutil.ToFloat64(m.HalfMoves) != 4 {
		t.Errorf("Unexpected state gauges: running=%v half_moves=%v",
			testutil.ToFloat64(m.Running), testutil.ToFloat64(m.HalfMoves))
	}

	m.SetState(false, 0)
	if testutil.ToFloat64(m.Running) != 0 || testutil.ToFloat64(m.HalfMoves) != 0 {
		t.Error("State gauges should reset")
	}
}

func TestInitMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	InitMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	InitMetrics(reg)
}

func TestRegisterRemaining(t *testing.T) {
	reg := prometheus.NewRegistry()
	remaining := side.Pair[time.Duration]{Left: time.Minute, Right: 30500 * time.Millisecond}
	RegisterRemaining(reg, func() side.Pair[time.Duration] { return remaining })

	expected := `
# HELP chessclock_remaining_seconds Time left on each side
# TYPE chessclock_remaining_seconds gauge
chessclock_remaining_seconds{side="left"} 60
chessclock_remaining_seconds{side="right"} 30.5
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "chessclock_remaining_seconds"); err != nil {
		t.Error(err)
	}

	// Sampled at scrape time.
	remaining.Left = 0
	expected = strings.Replace(expected, `{side="left"} 60`, `{side="left"} 0`, 1)
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "chessclock_remaining_seconds"); err != nil {
		t.Error(err)
	}
}

func TestRegisterDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	var dropped uint64 = 3
	RegisterDropped(reg, func() uint64 { return dropped })

	expected := `
# HELP chessclock_events_dropped_total Clock events not delivered to a slow subscriber
# TYPE chessclock_events_dropped_total counter
chessclock_events_dropped_total 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "chessclock_events_dropped_total"); err != nil {
		t.Error(err)
	}
}

func TestTimer(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	if timer.Elapsed() < time.Millisecond {
		t.Errorf("Elapsed too short: %v", timer.Elapsed())
	}
	timer.ObserveWithLabels(m.ActionDuration, "reset")

	if n := testutil.CollectAndCount(m.ActionDuration); n != 1 {
		t.Errorf("Expected one histogram series, got %d", n)
	}
}
