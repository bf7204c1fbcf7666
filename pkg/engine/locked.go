package engine

import (
	"sync"
	"time"

	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/timecontrol"
)

// Locked serializes every operation on an Engine behind one mutex, so the
// whole reconcile-then-act sequence is atomic for concurrent callers.
type Locked struct {
	mu     sync.Mutex
	engine *Engine
}

// NewLocked wraps e. The caller must not use e directly afterwards.
func NewLocked(e *Engine) *Locked {
	return &Locked{engine: e}
}

func (l *Locked) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.Reset()
}

func (l *Locked) Press(pressed side.Side) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.Press(pressed)
}

func (l *Locked) SetRunning(desired bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.SetRunning(desired)
}

func (l *Locked) ToggleRun() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.ToggleRun()
}

func (l *Locked) AddTime(s side.Side, seconds uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.AddTime(s, seconds)
}

func (l *Locked) AddTimeBoth(seconds uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engine.AddTimeBoth(seconds)
}

func (l *Locked) SwapSides() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.SwapSides()
}

func (l *Locked) Times() side.Pair[time.Duration] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Times()
}

func (l *Locked) Flagged() side.Pair[bool] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Flagged()
}

func (l *Locked) CurrentSide() side.Side {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.CurrentSide()
}

func (l *Locked) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.IsRunning()
}

func (l *Locked) HalfMoves() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.HalfMoves()
}

func (l *Locked) Describe() side.Pair[Description] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Describe()
}

func (l *Locked) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Snapshot()
}

func (l *Locked) Control() timecontrol.TimeControl {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Control()
}

// Do runs fn with exclusive access to the engine, for callers that need
// several operations to observe the same instant.
func (l *Locked) Do(fn func(e *Engine)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.engine)
}

var (
	_ Controller = (*Engine)(nil)
	_ Controller = (*Locked)(nil)
)
