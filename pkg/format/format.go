// Package format renders clock durations for display.
//
// Times are shown as "H:MM:SS" once an hour is involved, "MM:SS" under an
// hour, and "SS.CC" (with hundredths) under a minute. Seconds are always
// zero-padded to two digits.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Time units used for display. Precision stops at a hundredth of a second.
const (
	Centi  = 10 * time.Millisecond
	Second = 100 * Centi
	Minute = 60 * Second
	Hour   = 60 * Minute
)

// Formatter turns durations into display text.
type Formatter interface {
	// Time renders remaining time on a running clock
	Time(d time.Duration) string

	// Increment renders a per-move increment
	Increment(d time.Duration) string

	// TimeControl renders a "base + increment" label
	TimeControl(base, increment time.Duration) string
}

// Standard is the Formatter used by the built-in themes.
type Standard struct{}

func (Standard) Time(d time.Duration) string { return Time(d) }
func (Standard) Increment(d time.Duration) string { return Increment(d) }
func (Standard) TimeControl(base, increment time.Duration) string { return TimeControl(base, increment) }

// Parts splits d into hours, minutes, seconds and hundredths.
// Negative durations are treated as zero.
func Parts(d time.Duration) (h, m, s, c int64) {
	if d < 0 {
		d = 0
	}
	return int64(d / Hour),
		int64(d/Minute) % 60,
		int64(d/Second) % 60,
		int64(d/Centi) % 100
}

// Time renders remaining time. Hundredths are shown only below one minute.
func Time(d time.Duration) string {
	h, m, s, c := Parts(d)
	var b strings.Builder
	if h != 0 {
		fmt.Fprintf(&b, "%d:", h)
	}
	if h != 0 || m != 0 {
		fmt.Fprintf(&b, "%02d:", m)
	}
	fmt.Fprintf(&b, "%02d", s)
	if h == 0 && m == 0 {
		fmt.Fprintf(&b, ".%02d", c)
	}
	return b.String()
}

// Increment renders an increment. Hundredths are shown only when non-zero.
func Increment(d time.Duration) string {
	h, m, s, c := Parts(d)
	var b strings.Builder
	if h != 0 {
		fmt.Fprintf(&b, "%d:", h)
	}
	if h != 0 || m != 0 {
		fmt.Fprintf(&b, "%02d:", m)
	}
	fmt.Fprintf(&b, "%02d", s)
	if c != 0 {
		fmt.Fprintf(&b, ".%02d", c)
	}
	return b.String()
}

// TimeControl renders "base + increment", e.g. "10:00 + 05".
func TimeControl(base, increment time.Duration) string {
	return Time(base) + " + " + Increment(increment)
}
