// Package engine keeps time for a two-player countdown clock.
//
// The engine samples its clock only when asked. Every public operation
// first reconciles elapsed time into the active side's remaining time, so
// reads and actions always see a consistent accounting. An Engine does no
// locking of its own; wrap it in a Locked when more than one goroutine
// touches it.
package engine

import (
	"time"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/timecontrol"
)

// Description is the remaining time and increment of one side.
type Description struct {
	Remaining time.Duration
	Increment time.Duration
}

// Controller is the action and read surface shared by Engine and Locked.
type Controller interface {
	Reset()
	Press(pressed side.Side)
	SetRunning(desired bool)
	ToggleRun()
	AddTime(s side.Side, seconds uint)
	AddTimeBoth(seconds uint)
	SwapSides() bool

	Times() side.Pair[time.Duration]
	Flagged() side.Pair[bool]
	CurrentSide() side.Side
	IsRunning() bool
	HalfMoves() int
	Describe() side.Pair[Description]
	Snapshot() State
	Control() timecontrol.TimeControl
}

// Engine is the clock state machine. It is either paused or running on
// its active side; flagging does not change that.
type Engine struct {
	clock   clock.Clock
	control timecontrol.TimeControl
	state   State
}

// New creates an engine for tc reading time from clk.
// It returns an error wrapping timecontrol.ErrInvalid when tc is invalid.
func New(tc timecontrol.TimeControl, clk clock.Clock) (*Engine, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		clock:   clk,
		control: tc,
		state:   initialState(tc, clk.Now()),
	}, nil
}

func (e *Engine) reconcile() {
	e.state = e.state.Reconcile(e.clock.Now())
}

// Reset restores the fresh-game state of the original time control.
func (e *Engine) Reset() {
	e.reconcile()
	e.state = initialState(e.control, e.state.Stamp)
}

// Press ends pressed's turn and starts the opponent's clock.
//
// The increment is credited, and a half-move counted, only when the clock
// was running on pressed's own side with time left. Pressing the idle
// side's button (or the first press of a game) just hands over the turn.
func (e *Engine) Press(pressed side.Side) {
	e.reconcile()
	st := &e.state
	left := st.Remaining.Of(pressed)
	if st.Running && pressed == st.Active && left > 0 {
		st.Remaining = st.Remaining.With(pressed, left+st.Increment.Of(pressed))
		st.HalfMoves++
	}
	st.Running = true
	st.Active = pressed.Opposite()
}

// SetRunning pauses or resumes the active side's countdown.
func (e *Engine) SetRunning(desired bool) {
	e.reconcile()
	e.state.Running = desired
}

// ToggleRun flips between paused and running.
func (e *Engine) ToggleRun() {
	e.SetRunning(!e.state.Running)
}

// AddTime credits seconds to one side regardless of running or flagged state.
func (e *Engine) AddTime(s side.Side, seconds uint) {
	e.reconcile()
	e.state.Remaining = e.state.Remaining.With(s, e.state.Remaining.Of(s)+secondsOf(seconds))
}

// AddTimeBoth credits seconds to both sides.
func (e *Engine) AddTimeBoth(seconds uint) {
	e.reconcile()
	d := secondsOf(seconds)
	e.state.Remaining = side.Map(e.state.Remaining, func(_ side.Side, r time.Duration) time.Duration {
		return r + d
	})
}

// SwapSides exchanges remaining times and increments between the sides and
// flips the active side. It refuses, and reports false, while running.
// Callers displaying the time control should mirror it on success.
func (e *Engine) SwapSides() bool {
	if e.state.Running {
		return false
	}
	e.reconcile()
	st := &e.state
	st.Remaining = st.Remaining.Swapped()
	st.Increment = st.Increment.Swapped()
	st.Active = st.Active.Opposite()
	return true
}

// Times returns a snapshot of the remaining time per side.
func (e *Engine) Times() side.Pair[time.Duration] {
	e.reconcile()
	return e.state.Remaining
}

// Flagged reports which sides are out of time. Flagging is advisory: a
// flagged clock keeps running until someone presses or pauses it.
func (e *Engine) Flagged() side.Pair[bool] {
	e.reconcile()
	return e.state.Flagged()
}

// CurrentSide returns the side whose clock runs, or would run if resumed.
func (e *Engine) CurrentSide() side.Side {
	return e.state.Active
}

// IsRunning reports whether the active side's time is decreasing.
func (e *Engine) IsRunning() bool {
	return e.state.Running
}

// HalfMoves returns the number of increment-eligible presses so far.
func (e *Engine) HalfMoves() int {
	return e.state.HalfMoves
}

// Describe returns remaining time and increment per side.
func (e *Engine) Describe() side.Pair[Description] {
	e.reconcile()
	return side.Pair[Description]{
		Left:  Description{Remaining: e.state.Remaining.Left, Increment: e.state.Increment.Left},
		Right: Description{Remaining: e.state.Remaining.Right, Increment: e.state.Increment.Right},
	}
}

// Snapshot returns the full reconciled state.
func (e *Engine) Snapshot() State {
	e.reconcile()
	return e.state
}

// Control returns the time control the engine was created with.
func (e *Engine) Control() timecontrol.TimeControl {
	return e.control
}

func secondsOf(seconds uint) time.Duration {
	return time.Duration(seconds) * time.Second
}
