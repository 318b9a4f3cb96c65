package integration

import (
	"sort"
	"sync"
)

// Factory builds one adapter instance from per-integration configuration
type Factory func(cfg AdapterConfig) (PlatformAdapter, error)

// Registry maps providers to adapter factories. It is an explicit value
// owned by the composition root and handed to the integration manager, so
// initialization order stays visible and tests can build their own.
type Registry struct {
	mu        sync.RWMutex
	factories map[Provider]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Provider]Factory),
	}
}

// Register adds a factory for a provider. Registering the same provider
// twice replaces the factory; last write wins, which keeps test overrides
// simple.
func (r *Registry) Register(provider Provider, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = factory
}

// Resolve builds an adapter for the provider. An unregistered provider is a
// typed *NotFoundError, never a nil adapter.
func (r *Registry) Resolve(provider Provider, cfg AdapterConfig) (PlatformAdapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[provider]
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Provider: provider}
	}
	return factory(cfg)
}

// Has reports whether a factory is registered for the provider
func (r *Registry) Has(provider Provider) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[provider]
	return ok
}

// Providers lists registered providers in stable order
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
