// Package side identifies the two halves of a chess clock.
package side

import (
	"fmt"
	"strings"
)

// Side is one of the two clocks, Left or Right.
type Side uint8

const (
	Left Side = iota
	Right
)

// All lists both sides in display order.
var All = [2]Side{Left, Right}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	switch s {
	case Left:
		return Right
	case Right:
		return Left
	}
	panic(invalid(s))
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Parse accepts "left"/"l" and "right"/"r" in any case.
func Parse(name string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown side %q (expected left or right)", name)
}

func invalid(s Side) string {
	return fmt.Sprintf("side: invalid side %d", uint8(s))
}

// Pair holds one value per side.
type Pair[T any] struct {
	Left  T
	Right T
}

// Both returns a Pair with v on each side.
func Both[T any](v T) Pair[T] {
	return Pair[T]{Left: v, Right: v}
}

// Of returns the value for s. It panics if s is not a valid side.
func (p Pair[T]) Of(s Side) T {
	switch s {
	case Left:
		return p.Left
	case Right:
		return p.Right
	}
	panic(invalid(s))
}

// With returns a copy of p with the value for s replaced by v.
// It panics if s is not a valid side.
func (p Pair[T]) With(s Side, v T) Pair[T] {
	switch s {
	case Left:
		p.Left = v
	case Right:
		p.Right = v
	default:
		panic(invalid(s))
	}
	return p
}

// Swapped returns p with the two values exchanged.
func (p Pair[T]) Swapped() Pair[T] {
	return Pair[T]{Left: p.Right, Right: p.Left}
}

// Map applies fn to both values.
func Map[T, U any](p Pair[T], fn func(Side, T) U) Pair[U] {
	return Pair[U]{Left: fn(Left, p.Left), Right: fn(Right, p.Right)}
}
