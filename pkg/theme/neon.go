package theme

import (
	"time"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
)

// NeonName is the registry name of the Neon theme.
const NeonName = "neon"

// Neon pulses the digits between a red and a green over a fixed period.
type Neon struct {
	clock  clock.Clock
	begin  RGB
	end    RGB
	period time.Duration
}

// NewNeon creates a Neon theme timed by clk.
func NewNeon(clk clock.Clock) *Neon {
	return &Neon{
		clock:  clk,
		begin:  RGB{0xB2, 0x0F, 0x3D},
		end:    RGB{0x33, 0xCC, 0x33},
		period: 5 * time.Second,
	}
}

func (n *Neon) Name() string { return NeonName }

func (n *Neon) Palette(v View) Palette {
	fg := n.pulse()
	return Palette{
		Background: background(v).Color(),
		Foreground: fg.Color(),
		Meta:       fg.Invert().Color(),
	}
}

// pulse fades begin→end over the first half period and back over the second.
func (n *Neon) pulse() RGB {
	period := int64(n.period)
	half := period / 2
	phase := int64(clock.ToDuration(n.clock.Now())) % period
	if phase > half {
		phase = period - phase
	}

	mix := func(b, e uint8) uint8 {
		return uint8(int64(b) + (int64(e)-int64(b))*phase/half)
	}
	return RGB{mix(n.begin.R, n.end.R), mix(n.begin.G, n.end.G), mix(n.begin.B, n.end.B)}
}
