// Package config resolves clock settings from defaults, a JSON file,
// CHESSCLOCK_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/spf13/afero"

	"github.com/BYTE-6D65/chessclock/pkg/keymap"
	"github.com/BYTE-6D65/chessclock/pkg/side"
	"github.com/BYTE-6D65/chessclock/pkg/timecontrol"
)

// DefaultTime is the base time used when none is configured.
const DefaultTime = "10:00"

// Config holds every user-tunable setting. Times are kept in the
// "[HH:]MM:SS" notation the user typed; TimeControl parses them.
type Config struct {
	// Shared base time and increment, overridden per side when the
	// side-specific value is non-empty.
	Time           string `env:"CHESSCLOCK_TIME" default:"10:00"`
	TimeLeft       string `env:"CHESSCLOCK_TIME_LEFT"`
	TimeRight      string `env:"CHESSCLOCK_TIME_RIGHT"`
	Increment      string `env:"CHESSCLOCK_INCREMENT" default:"0"`
	IncrementLeft  string `env:"CHESSCLOCK_INCREMENT_LEFT"`
	IncrementRight string `env:"CHESSCLOCK_INCREMENT_RIGHT"`

	Start side.Side `env:"CHESSCLOCK_START" default:"left"`

	Theme  string            `env:"CHESSCLOCK_THEME" default:"default"`
	Numpad bool              `env:"CHESSCLOCK_NUMPAD" default:"false"`
	Keys   map[string]string `env:"CHESSCLOCK_KEYS"` // key → action name

	AddSeconds uint `env:"CHESSCLOCK_ADD_SECONDS" default:"15"`
	FPS        int  `env:"CHESSCLOCK_FPS" default:"30"`

	MetricsAddr string `env:"CHESSCLOCK_METRICS_ADDR"` // empty disables /metrics
	LogFile     string `env:"CHESSCLOCK_LOG_FILE"`     // empty discards logs
}

// DefaultConfig returns ten minutes a side, no increment, left to move.
func DefaultConfig() Config {
	return Config{
		Time:       DefaultTime,
		Increment:  "0",
		Start:      side.Left,
		Theme:      "default",
		AddSeconds: 15,
		FPS:        30,
	}
}

// fileConfig mirrors Config for decoding; nil fields are absent from the file.
type fileConfig struct {
	Time           *string           `json:"time"`
	TimeLeft       *string           `json:"time_left"`
	TimeRight      *string           `json:"time_right"`
	Increment      *string           `json:"increment"`
	IncrementLeft  *string           `json:"increment_left"`
	IncrementRight *string           `json:"increment_right"`
	Start          *string           `json:"start"`
	Theme          *string           `json:"theme"`
	Numpad         *bool             `json:"numpad"`
	Keys           map[string]string `json:"keys"`
	AddSeconds     *uint             `json:"add_seconds"`
	FPS            *int              `json:"fps"`
	MetricsAddr    *string           `json:"metrics_addr"`
	LogFile        *string           `json:"log_file"`
}

// LoadFile overlays the JSON file at path onto c. Unknown members are an
// error so that typos do not pass silently.
func (c *Config) LoadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc, json.RejectUnknownMembers(true)); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&c.Time, fc.Time)
	setString(&c.TimeLeft, fc.TimeLeft)
	setString(&c.TimeRight, fc.TimeRight)
	setString(&c.Increment, fc.Increment)
	setString(&c.IncrementLeft, fc.IncrementLeft)
	setString(&c.IncrementRight, fc.IncrementRight)
	setString(&c.Theme, fc.Theme)
	setString(&c.MetricsAddr, fc.MetricsAddr)
	setString(&c.LogFile, fc.LogFile)

	if fc.Start != nil {
		s, err := side.Parse(*fc.Start)
		if err != nil {
			return fmt.Errorf("config %s: start: %w", path, err)
		}
		c.Start = s
	}
	if fc.Numpad != nil {
		c.Numpad = *fc.Numpad
	}
	if fc.AddSeconds != nil {
		c.AddSeconds = *fc.AddSeconds
	}
	if fc.FPS != nil {
		c.FPS = *fc.FPS
	}
	for k, a := range fc.Keys {
		c.setKey(k, a)
	}
	return nil
}

// ApplyEnv overlays CHESSCLOCK_* variables onto c. Malformed numeric or
// boolean values are ignored, leaving the previous value.
func (c *Config) ApplyEnv() {
	strs := []struct {
		name string
		dst  *string
	}{
		{"CHESSCLOCK_TIME", &c.Time},
		{"CHESSCLOCK_TIME_LEFT", &c.TimeLeft},
		{"CHESSCLOCK_TIME_RIGHT", &c.TimeRight},
		{"CHESSCLOCK_INCREMENT", &c.Increment},
		{"CHESSCLOCK_INCREMENT_LEFT", &c.IncrementLeft},
		{"CHESSCLOCK_INCREMENT_RIGHT", &c.IncrementRight},
		{"CHESSCLOCK_THEME", &c.Theme},
		{"CHESSCLOCK_METRICS_ADDR", &c.MetricsAddr},
		{"CHESSCLOCK_LOG_FILE", &c.LogFile},
	}
	for _, s := range strs {
		if v := os.Getenv(s.name); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("CHESSCLOCK_START"); v != "" {
		if s, err := side.Parse(v); err == nil {
			c.Start = s
		}
	}
	if v := os.Getenv("CHESSCLOCK_NUMPAD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Numpad = b
		}
	}
	if v := os.Getenv("CHESSCLOCK_ADD_SECONDS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 0); err == nil {
			c.AddSeconds = uint(n)
		}
	}
	if v := os.Getenv("CHESSCLOCK_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.FPS = n
		}
	}
	// CHESSCLOCK_KEYS="x=reset,enter=press_right"
	if v := os.Getenv("CHESSCLOCK_KEYS"); v != "" {
		for _, pair := range strings.Split(v, ",") {
			if k, a, ok := strings.Cut(pair, "="); ok && k != "" {
				c.setKey(k, strings.TrimSpace(a))
			}
		}
	}
}

func (c *Config) setKey(key, action string) {
	if c.Keys == nil {
		c.Keys = make(map[string]string)
	}
	c.Keys[key] = action
}

// Load resolves defaults, then the file at path if path is non-empty,
// then the environment. Flags are applied by the caller afterwards.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(fs, path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// TimeControl parses the configured times. Unset per-side values fall
// back to the shared ones.
func (c *Config) TimeControl() (timecontrol.TimeControl, error) {
	shared := c.Time
	if shared == "" {
		shared = DefaultTime
	}

	parse := func(what, own, fallback string, increment bool) (time.Duration, error) {
		s := own
		if s == "" {
			s = fallback
		}
		d, err := timecontrol.ParseClock(s, increment)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", timecontrol.ErrInvalid, what, err)
		}
		return d, nil
	}

	var tc timecontrol.TimeControl
	var errs []error
	var err error

	if tc.Base.Left, err = parse("time left", c.TimeLeft, shared, false); err != nil {
		errs = append(errs, err)
	}
	if tc.Base.Right, err = parse("time right", c.TimeRight, shared, false); err != nil {
		errs = append(errs, err)
	}
	if tc.Increment.Left, err = parse("increment left", c.IncrementLeft, c.Increment, true); err != nil {
		errs = append(errs, err)
	}
	if tc.Increment.Right, err = parse("increment right", c.IncrementRight, c.Increment, true); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return timecontrol.TimeControl{}, err
	}

	tc.Start = c.Start
	if err := tc.Validate(); err != nil {
		return timecontrol.TimeControl{}, err
	}
	return tc, nil
}

// Keymap builds the default layout and applies the key overrides.
func (c *Config) Keymap() (*keymap.Keymap, error) {
	km, err := keymap.Default(c.Numpad)
	if err != nil {
		return nil, err
	}

	for _, key := range sortedKeys(c.Keys) {
		action, err := keymap.ParseAction(c.Keys[key])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		km.Remap(key, action)
	}
	return km, nil
}

// Refresh is the redraw interval implied by FPS.
func (c *Config) Refresh() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.FPS)
}

// Validate checks that the configuration describes a playable clock.
func (c *Config) Validate() error {
	if _, err := c.TimeControl(); err != nil {
		return err
	}
	if _, err := c.Keymap(); err != nil {
		return err
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps must be 1..240, got %d", c.FPS)
	}
	return nil
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	control := "invalid"
	if tc, err := c.TimeControl(); err == nil {
		control = fmt.Sprintf("%s | %s", tc.Label(side.Left), tc.Label(side.Right))
	}

	keys := "defaults"
	if len(c.Keys) > 0 {
		var parts []string
		for _, k := range sortedKeys(c.Keys) {
			parts = append(parts, fmt.Sprintf("%q=%s", k, c.Keys[k]))
		}
		keys = "defaults + " + strings.Join(parts, ", ")
	}

	return fmt.Sprintf(`Chess Clock Configuration:
  Time Control: %s
  Starts:       %s
  Add Time:     %ds

  Display:
    Theme:  %s
    FPS:    %d
    Numpad: %t
    Keys:   %s

  Metrics: %s
  Log:     %s
`,
		control,
		c.Start,
		c.AddSeconds,
		c.Theme,
		c.FPS,
		c.Numpad,
		keys,
		orDisabled(c.MetricsAddr),
		orDisabled(c.LogFile),
	)
}

func orDisabled(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
