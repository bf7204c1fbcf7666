// Package telemetry exposes clock activity as Prometheus metrics.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BYTE-6D65/chessclock/pkg/side"
)

// Metrics holds the collectors for one clock session.
type Metrics struct {
	Presses        *prometheus.CounterVec
	Actions        *prometheus.CounterVec
	Flags          *prometheus.CounterVec
	HalfMoves      prometheus.Gauge
	Running        prometheus.Gauge
	ActionDuration *prometheus.HistogramVec
}

// InitMetrics registers the clock metrics on registry, or on the default
// registerer when registry is nil. It panics if called twice with the
// same registry.
func InitMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Presses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessclock_presses_total",
				Help: "Button presses by side and whether the increment was credited",
			},
			[]string{"side", "credited"},
		),

		Actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessclock_actions_total",
				Help: "Clock actions handled, by action name",
			},
			[]string{"action"},
		),

		Flags: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessclock_flags_total",
				Help: "Times a side ran out of time",
			},
			[]string{"side"},
		),

		HalfMoves: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chessclock_half_moves",
			Help: "Increment-eligible presses in the current game",
		}),

		Running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chessclock_running",
			Help: "1 while the clock counts down, 0 while paused",
		}),

		// Actions take microseconds; anything in the tens of milliseconds
		// would be visible as UI lag.
		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chessclock_action_duration_seconds",
				Help:    "Time spent applying an action to the clock",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
			},
			[]string{"action"},
		),
	}
}

// ObservePress counts a press of s.
func (m *Metrics) ObservePress(s side.Side, credited bool) {
	m.Presses.WithLabelValues(s.String(), strconv.FormatBool(credited)).Inc()
}

// ObserveAction counts one handled action.
func (m *Metrics) ObserveAction(action string) {
	m.Actions.WithLabelValues(action).Inc()
}

// ObserveFlag counts s running out of time.
func (m *Metrics) ObserveFlag(s side.Side) {
	m.Flags.WithLabelValues(s.String()).Inc()
}

// SetState mirrors the engine's running flag and half-move counter.
func (m *Metrics) SetState(running bool, halfMoves int) {
	if running {
		m.Running.Set(1)
	} else {
		m.Running.Set(0)
	}
	m.HalfMoves.Set(float64(halfMoves))
}

// RegisterRemaining adds chessclock_remaining_seconds{side}, sampled from
// remaining at scrape time. remaining must be safe for concurrent use.
func RegisterRemaining(registry prometheus.Registerer, remaining func() side.Pair[time.Duration]) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	for _, s := range side.All {
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "chessclock_remaining_seconds",
				Help:        "Time left on each side",
				ConstLabels: prometheus.Labels{"side": s.String()},
			},
			func() float64 {
				return remaining().Of(s).Seconds()
			},
		)
	}
}

// RegisterDropped adds chessclock_events_dropped_total, read from dropped
// at scrape time.
func RegisterDropped(registry prometheus.Registerer, dropped func() uint64) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	promauto.With(registry).NewCounterFunc(
		prometheus.CounterOpts{
			Name: "chessclock_events_dropped_total",
			Help: "Clock events not delivered to a slow subscriber",
		},
		func() float64 {
			return float64(dropped())
		},
	)
}

// Timer measures one operation.
type Timer struct {
	start time.Time
}

// NewTimer creates a timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveWithLabels records the elapsed seconds on histogram.
func (t *Timer) ObserveWithLabels(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
