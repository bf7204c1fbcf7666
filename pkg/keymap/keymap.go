// Package keymap binds terminal keys to clock actions.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDuplicateKey is returned when one key is bound to two actions at construction.
var ErrDuplicateKey = errors.New("key bound twice")

// Action is a user interaction. On a physical clock each action would be a button.
type Action int

const (
	PressLeft Action = iota
	PressRight
	AddTimeLeft
	AddTimeRight
	PlayPause
	SwapSides
	Reset
	Quit
)

// Actions lists every action in declaration order.
var Actions = []Action{PressLeft, PressRight, AddTimeLeft, AddTimeRight, PlayPause, SwapSides, Reset, Quit}

func (a Action) String() string {
	switch a {
	case PressLeft:
		return "press_left"
	case PressRight:
		return "press_right"
	case AddTimeLeft:
		return "addtime_left"
	case AddTimeRight:
		return "addtime_right"
	case PlayPause:
		return "play_pause"
	case SwapSides:
		return "swap_sides"
	case Reset:
		return "reset"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(a))
	}
}

// ParseAction is the inverse of Action.String.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range Actions {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// Keymap maps bubbletea key strings (tea.KeyMsg.String()) to actions.
// Several keys may trigger the same action.
type Keymap struct {
	bindings map[string]Action
}

// Default returns the standard layout. With numpad set, the right player
// presses with enter and the left player's add-time moves to 9.
func Default(numpad bool) (*Keymap, error) {
	pressRight, addTimeLeft := "l", "p"
	if numpad {
		pressRight, addTimeLeft = "enter", "9"
	}

	keys := []string{"a", pressRight, addTimeLeft, "q", " ", "z", "r", "ctrl+c", "esc"}
	acts := []Action{PressLeft, PressRight, AddTimeLeft, AddTimeRight, PlayPause, SwapSides, Reset, Quit, Quit}
	return New(keys, acts)
}

// New binds keys[i] to acts[i]. Every key must be distinct.
func New(keys []string, acts []Action) (*Keymap, error) {
	if len(keys) != len(acts) {
		return nil, fmt.Errorf("keymap: %d keys for %d actions", len(keys), len(acts))
	}

	km := &Keymap{bindings: make(map[string]Action, len(keys))}
	for i, k := range keys {
		if prev, exists := km.bindings[k]; exists {
			return nil, fmt.Errorf("%w: %q for %s and %s", ErrDuplicateKey, k, prev, acts[i])
		}
		km.bindings[k] = acts[i]
	}
	return km, nil
}

// Remap binds key to action, overwriting any previous binding of key.
// It reports whether every action is still reachable afterwards.
func (k *Keymap) Remap(key string, action Action) bool {
	k.bindings[key] = action
	return k.Complete()
}

// Complete reports whether every action has at least one key.
func (k *Keymap) Complete() bool {
	return len(k.Missing()) == 0
}

// Missing lists actions with no key bound.
func (k *Keymap) Missing() []Action {
	bound := make(map[Action]bool, len(k.bindings))
	for _, a := range k.bindings {
		bound[a] = true
	}

	var missing []Action
	for _, a := range Actions {
		if !bound[a] {
			missing = append(missing, a)
		}
	}
	return missing
}

// Lookup returns the action bound to key.
func (k *Keymap) Lookup(key string) (Action, bool) {
	a, ok := k.bindings[key]
	return a, ok
}

// Keys returns the keys bound to action, sorted.
func (k *Keymap) Keys(action Action) []string {
	var keys []string
	for key, a := range k.bindings {
		if a == action {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Help renders a one-line summary like "a/l press • space pause".
func (k *Keymap) Help() string {
	label := func(a Action) string {
		keys := k.Keys(a)
		for i, key := range keys {
			if key == " " {
				keys[i] = "space"
			}
		}
		return strings.Join(keys, "/")
	}

	parts := []string{
		label(PressLeft) + "|" + label(PressRight) + " press",
		label(PlayPause) + " pause",
		label(AddTimeLeft) + "|" + label(AddTimeRight) + " +time",
		label(SwapSides) + " swap",
		label(Reset) + " reset",
		label(Quit) + " quit",
	}
	return strings.Join(parts, " • ")
}
