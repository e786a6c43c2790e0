package provider

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory builds an Adapter from its configuration.
type Factory func(cfg Config) (Adapter, error)

// Registry maps adapter types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for typ. Registering a type twice is an error.
func (r *Registry) Register(typ string, factory Factory) error {
	typ = strings.TrimSpace(typ)
	if typ == "" || factory == nil {
		return fmt.Errorf("%w: adapter type and factory are required", ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("%w: adapter type %q already registered", ErrInvalidConfig, typ)
	}
	r.factories[typ] = factory
	return nil
}

// Build validates cfg and instantiates its adapter.
func (r *Registry) Build(cfg Config) (Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (provider %s)", ErrUnknownType, cfg.Type, cfg.ID)
	}

	adapter, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %s: build %s adapter: %w", cfg.ID, cfg.Type, err)
	}
	return adapter, nil
}

// BuildAll builds bindings for every config.
func (r *Registry) BuildAll(cfgs []Config) ([]Binding, error) {
	bindings := make([]Binding, 0, len(cfgs))
	for _, cfg := range cfgs {
		adapter, err := r.Build(cfg)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Config: cfg, Adapter: adapter})
	}
	return bindings, nil
}

// Types returns the registered adapter types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}
