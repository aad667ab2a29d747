package provider

import (
	"fmt"

	"github.com/launchdeck/launchdeck/internal/models"
)

// Registry holds the adapters available to the orchestrator. It is built once
// at startup and injected, never mutated afterwards.
type Registry struct {
	adapters map[models.ProviderName]Adapter
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	byName := make(map[models.ProviderName]Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Registry{adapters: byName}
}

// Get returns the adapter for a provider name, or ErrUnsupportedProvider.
func (r *Registry) Get(name models.ProviderName) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return adapter, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []models.ProviderName {
	names := make([]models.ProviderName, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
