// Package timecontrol describes how much time each side starts with and
// how much it earns per move.
package timecontrol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BYTE-6D65/chessclock/pkg/format"
	"github.com/BYTE-6D65/chessclock/pkg/side"
)

// ErrInvalid is wrapped by every time control validation failure.
var ErrInvalid = errors.New("invalid time control")

// TimeControl is the per-side base time and increment plus the side whose
// clock runs first. The engine never mutates it.
type TimeControl struct {
	Base      side.Pair[time.Duration]
	Increment side.Pair[time.Duration]
	Start     side.Side
}

// Uniform returns a symmetric time control where Left starts.
func Uniform(base, increment time.Duration) TimeControl {
	return TimeControl{
		Base:      side.Both(base),
		Increment: side.Both(increment),
		Start:     side.Left,
	}
}

// Validate checks that both base times are positive, both increments are
// non-negative and the starting side is valid.
func (tc TimeControl) Validate() error {
	for _, s := range side.All {
		if b := tc.Base.Of(s); b <= 0 {
			return fmt.Errorf("%w: %s base time must be positive, got %v", ErrInvalid, s, b)
		}
		if inc := tc.Increment.Of(s); inc < 0 {
			return fmt.Errorf("%w: %s increment must not be negative, got %v", ErrInvalid, s, inc)
		}
	}
	if !tc.Start.Valid() {
		return fmt.Errorf("%w: starting side %s", ErrInvalid, tc.Start)
	}
	return nil
}

// Mirrored returns the time control with everything exchanged between the
// two sides, matching what the engine does on a swap.
func (tc TimeControl) Mirrored() TimeControl {
	return TimeControl{
		Base:      tc.Base.Swapped(),
		Increment: tc.Increment.Swapped(),
		Start:     tc.Start.Opposite(),
	}
}

// Label renders the control of one side, e.g. "10:00 + 05".
func (tc TimeControl) Label(s side.Side) string {
	return format.TimeControl(tc.Base.Of(s), tc.Increment.Of(s))
}

func (tc TimeControl) String() string {
	return fmt.Sprintf("%s | %s (%s starts)", tc.Label(side.Left), tc.Label(side.Right), tc.Start)
}

// ParseClock parses "[HH:]MM:SS" into a duration. A bare number is read as
// minutes, or as seconds when increment is true. The empty string is zero.
func ParseClock(s string, increment bool) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	fields := strings.Split(s, ":")
	values := make([]int64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", s, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("parse %q: negative field %d", s, n)
		}
		values[i] = n
	}

	switch len(values) {
	case 3:
		return time.Duration(values[0])*time.Hour +
			time.Duration(values[1])*time.Minute +
			time.Duration(values[2])*time.Second, nil
	case 2:
		return time.Duration(values[0])*time.Minute +
			time.Duration(values[1])*time.Second, nil
	case 1:
		if increment {
			return time.Duration(values[0]) * time.Second, nil
		}
		return time.Duration(values[0]) * time.Minute, nil
	default:
		return 0, fmt.Errorf("parse %q: expected [HH:]MM:SS", s)
	}
}
