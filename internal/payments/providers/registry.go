package providers

import (
	"fmt"
	"strings"

	"mesa-system/internal/database/models"
)

type Registry struct {
	adapters map[models.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// DefaultRegistry wires every provider the engine knows about.
func DefaultRegistry() *Registry {
	return NewRegistry(Manual(), Cardnet(), Azul())
}

func (r *Registry) Get(p models.Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return a, nil
}

var webhookSegments = map[string]models.Provider{
	"cardnet": models.ProviderCardnet,
	"azul":    models.ProviderAzul,
}

// ProviderFromSegment maps a webhook URL segment onto a provider.
func ProviderFromSegment(segment string) (models.Provider, bool) {
	p, ok := webhookSegments[strings.ToLower(strings.TrimSpace(segment))]
	return p, ok
}
