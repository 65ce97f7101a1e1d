package secret

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicateProvider is returned when a provider name is registered twice.
var ErrDuplicateProvider = errors.New("secret: provider already registered")

// Factory builds a Provider from its config block.
type Factory func(cfg map[string]any) (Provider, error)

// Spec names a provider and its config block, as it appears in the
// service configuration.
type Spec struct {
	Name   string
	Config map[string]any
}

// Registry maps provider names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	name = strings.TrimSpace(name)
	if name == "" || f == nil {
		return fmt.Errorf("%w: provider needs a name and a factory", ErrInvalidConfig)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.factories[name] = f
	return nil
}

// Create builds the provider registered as name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	p, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("secret: provider %q: %w", name, err)
	}
	return p, nil
}

// Build creates a provider for every spec. All failures are reported.
func (r *Registry) Build(specs ...Spec) ([]Provider, error) {
	providers := make([]Provider, 0, len(specs))
	var errs []error
	for _, s := range specs {
		p, err := r.Create(s.Name, s.Config)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, errors.Join(errs...)
}

// Names returns the registered provider names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// DefaultRegistry holds the built-in env and file providers.
var DefaultRegistry = NewRegistry()
