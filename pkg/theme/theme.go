// Package theme picks the colours of each half of the clock face.
package theme

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View is what a theme may look at when colouring one side.
type View struct {
	Current   bool          // side is the active one
	Running   bool          // clock is counting
	Remaining time.Duration // time left on this side
}

// Palette is the set of colours for one side.
type Palette struct {
	Background lipgloss.Color
	Foreground lipgloss.Color // remaining time
	Meta       lipgloss.Color // time control label and counters
}

// Theme colours a side of the clock.
type Theme interface {
	Name() string
	Palette(v View) Palette
}

// RGB is an opaque 24-bit colour.
type RGB struct {
	R, G, B uint8
}

// Color converts c to a lipgloss hex colour.
func (c RGB) Color() lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}

// Darken subtracts n from each channel, floored at zero.
func (c RGB) Darken(n uint8) RGB {
	sub := func(v uint8) uint8 {
		if v < n {
			return 0
		}
		return v - n
	}
	return RGB{sub(c.R), sub(c.G), sub(c.B)}
}

// Invert flips every bit of each channel.
func (c RGB) Invert() RGB {
	return RGB{^c.R, ^c.G, ^c.B}
}

var (
	activeGreen = RGB{0, 48, 0}
	idleGrey    = RGB{32, 32, 32}
	white       = RGB{0xFF, 0xFF, 0xFF}
	flagRed     = RGB{0xFF, 0x55, 0x55}
)

// background is shared by the built-in themes: green for the side to
// move, grey for the other, both dimmed while paused.
func background(v View) RGB {
	rgb := activeGreen
	if !v.Current {
		rgb = idleGrey
	}
	if !v.Running {
		rgb = rgb.Darken(16)
	}
	return rgb
}

// Default is the plain theme.
type Default struct{}

func (Default) Name() string { return DefaultName }

func (Default) Palette(v View) Palette {
	fg := white
	if v.Remaining <= 0 {
		fg = flagRed
	}
	return Palette{
		Background: background(v).Color(),
		Foreground: fg.Color(),
		Meta:       fg.Color(),
	}
}
