package strategy

import (
	"sync"

	"github.com/rxtech-lab/paper-trading/pkg/errors"
)

// Registry maps strategy names to factories. Resolution happens at
// call time so callers can reference strategies by name in configs
// without importing their packages.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a named factory to the registry.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %q already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create resolves a name and builds a configured strategy instance.
func (r *Registry) Create(name string, config string) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q not found", name)
	}

	strategy, err := factory(config)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "strategy %q rejected config", name)
	}

	return strategy, nil
}

// List returns the names of all registered strategies.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// DefaultRegistry holds the built-in strategies.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(SMACrossoverName, NewSMACrossover)
}
