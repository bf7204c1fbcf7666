package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// MonoTime represents a monotonic timestamp in nanoseconds since an arbitrary epoch.
// Using int64 provides ~292 years of range with nanosecond precision.
type MonoTime int64

// Clock provides the monotonic time source read by the clock engine.
// Implementations must never return a value smaller than a previous Now.
type Clock interface {
	// Now returns the current monotonic time
	Now() MonoTime

	// Since returns the duration elapsed since the given monotonic time
	Since(t MonoTime) time.Duration
}

// ToDuration converts a MonoTime (nanoseconds) to a time.Duration.
func ToDuration(ns MonoTime) time.Duration {
	return time.Duration(ns)
}

// FromDuration converts a time.Duration to MonoTime (nanoseconds).
func FromDuration(d time.Duration) MonoTime {
	return MonoTime(d.Nanoseconds())
}

// SystemClock measures monotonic time against an epoch taken from a
// clockwork.Clock. With the real clockwork clock this is the Go runtime's
// monotonic reading; with a fake clock tests control every instant.
type SystemClock struct {
	source clockwork.Clock
	epoch  time.Time // Cached at creation to provide stable monotonic base
}

// NewSystemClock creates a SystemClock on the real system clock, anchored at the current time.
func NewSystemClock() *SystemClock {
	return New(clockwork.NewRealClock())
}

// New creates a SystemClock reading from source, anchored at source.Now().
func New(source clockwork.Clock) *SystemClock {
	return &SystemClock{
		source: source,
		epoch:  source.Now(),
	}
}

// Now returns the current monotonic time in nanoseconds since epoch.
func (s *SystemClock) Now() MonoTime {
	return FromDuration(s.source.Since(s.epoch))
}

// Since returns the duration elapsed since the given monotonic time.
func (s *SystemClock) Since(t MonoTime) time.Duration {
	return ToDuration(s.Now() - t)
}

// Source returns the underlying clockwork clock.
func (s *SystemClock) Source() clockwork.Clock {
	return s.source
}
