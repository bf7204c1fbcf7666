package engine

import (
	"time"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/timecontrol"
)

// State is the complete accounting state of a two-sided countdown.
//
// Invariants:
//   - Remaining is never negative on either side
//   - only Remaining[Active] shrinks with elapsed time
//   - Stamp never decreases
type State struct {
	Remaining side.Pair[time.Duration]
	Increment side.Pair[time.Duration]
	Active    side.Side
	Running   bool
	HalfMoves int
	Stamp     clock.MonoTime // instant Remaining was last reconciled at
}

// initialState is the state of a fresh game for tc, reconciled at now.
func initialState(tc timecontrol.TimeControl, now clock.MonoTime) State {
	return State{
		Remaining: tc.Base,
		Increment: tc.Increment,
		Active:    tc.Start,
		Running:   false,
		HalfMoves: 0,
		Stamp:     now,
	}
}

// Reconcile folds the time elapsed between Stamp and now into the active
// side's remaining time, clamping at zero, and moves Stamp to now.
// An instant before Stamp is treated as Stamp.
func (s State) Reconcile(now clock.MonoTime) State {
	if now < s.Stamp {
		now = s.Stamp
	}
	if s.Running {
		elapsed := clock.ToDuration(now - s.Stamp)
		left := s.Remaining.Of(s.Active) - elapsed
		if left < 0 {
			left = 0
		}
		s.Remaining = s.Remaining.With(s.Active, left)
	}
	s.Stamp = now
	return s
}

// Flagged reports which sides have run out of time.
func (s State) Flagged() side.Pair[bool] {
	return side.Map(s.Remaining, func(_ side.Side, d time.Duration) bool {
		return d <= 0
	})
}
