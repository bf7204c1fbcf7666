package theme

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/BYTE-6D65/chessclock/pkg/clock"
)

// DefaultName is the registry name of the Default theme.
const DefaultName = "default"

var (
	// ErrUnknownTheme is returned by strict lookups of unregistered names.
	ErrUnknownTheme = errors.New("unknown theme")

	// ErrThemeExists is returned when adding a taken name without overwrite.
	ErrThemeExists = errors.New("theme already registered")
)

// Factory builds a fresh theme instance.
type Factory func() Theme

// Registry maps theme names to factories. It is built at startup and
// handed to the UI; there is no global registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding only the default theme.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{
			DefaultName: func() Theme { return Default{} },
		},
	}
}

// Builtin returns a registry with every theme shipped with the clock.
func Builtin(clk clock.Clock) *Registry {
	r := NewRegistry()
	_ = r.Add(NeonName, func() Theme { return NewNeon(clk) }, false)
	return r
}

// Add registers factory under name.
func (r *Registry) Add(name string, factory Factory, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists && !overwrite {
		return fmt.Errorf("%w: %s", ErrThemeExists, name)
	}
	r.factories[name] = factory
	return nil
}

// Get builds the theme registered under name. An empty name means the
// default theme. Unknown names fall back to the default theme unless
// strict is set, in which case ErrUnknownTheme is returned.
func (r *Registry) Get(name string, strict bool) (Theme, error) {
	if name == "" {
		name = DefaultName
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		if strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTheme, name)
		}
		return Default{}, nil
	}
	return factory(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns every registered name in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
