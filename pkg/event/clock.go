package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/BYTE-6D65/chessclock/pkg/format"
)

// Clock event types.
const (
	TypePress       = "clock.press"
	TypePause       = "clock.pause"
	TypeResume      = "clock.resume"
	TypeReset       = "clock.reset"
	TypeSwap        = "clock.swap"
	TypeSwapRefused = "clock.swap.refused"
	TypeAddTime     = "clock.addtime"
	TypeFlag        = "clock.flag"
)

// Types lists every clock event type.
var Types = []string{
	TypePress, TypePause, TypeResume, TypeReset,
	TypeSwap, TypeSwapRefused, TypeAddTime, TypeFlag,
}

// Times is remaining time per side in nanoseconds.
type Times struct {
	LeftNs  int64 `json:"left_ns"`
	RightNs int64 `json:"right_ns"`
}

// NewTimes converts a pair of durations.
func NewTimes(left, right time.Duration) Times {
	return Times{LeftNs: int64(left), RightNs: int64(right)}
}

// Payload is the body of every clock event. Fields that do not apply to
// an event type are left at their zero value.
type Payload struct {
	// Side is the side acted on: the pressed side, the side credited with
	// added time, the flagged side. Empty when the action is not sided.
	Side string `json:"side,omitzero"`

	// Active is the side to move after the action
	Active string `json:"active"`

	Running   bool  `json:"running"`
	HalfMoves int   `json:"half_moves"`
	Remaining Times `json:"remaining"`

	// Credited reports whether a press earned its increment
	Credited bool `json:"credited,omitzero"`

	// Seconds is the amount added by clock.addtime
	Seconds uint `json:"seconds,omitzero"`
}

// String renders the payload for log lines.
func (p Payload) String() string {
	var b strings.Builder
	if p.Side != "" {
		fmt.Fprintf(&b, "side=%s ", p.Side)
	}
	if p.Credited {
		b.WriteString("credited ")
	}
	if p.Seconds > 0 {
		fmt.Fprintf(&b, "seconds=%d ", p.Seconds)
	}

	fmt.Fprintf(&b, "active=%s running=%t half_moves=%d remaining=%s/%s",
		p.Active, p.Running, p.HalfMoves,
		format.Time(time.Duration(p.Remaining.LeftNs)),
		format.Time(time.Duration(p.Remaining.RightNs)))
	return b.String()
}

// Describe renders a clock event as a single log line of the form
// "[TYPE] SOURCE: PAYLOAD".
func Describe(evt Event, codec Codec) string {
	var p Payload
	if err := evt.DecodePayload(&p, codec); err != nil {
		return fmt.Sprintf("[%s] %s: undecodable payload: %v", evt.Type, evt.Source, err)
	}
	return fmt.Sprintf("[%s] %s: %s", evt.Type, evt.Source, p)
}
