package connectors

import (
	"fmt"
	"sort"
	"sync"
)

// Settings carries connector-specific wiring read from config (endpoints,
// bucket names, option flags). Credentials travel separately via Connect.
type Settings map[string]string

// Factory builds a connector instance from its settings
type Factory func(settings Settings) (Connector, error)

// Registry manages connector registration and instantiation
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that connector packages
// self-register into from init().
func Default() *Registry { return defaultRegistry }

// Register adds a factory under name. Duplicate registration is an error.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("connector %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics on duplicate registration; used from init()
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Create instantiates the named connector
func (r *Registry) Create(name string, settings Settings) (Connector, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("connector %s not found", name)
	}
	c, err := factory(settings)
	if err != nil {
		return nil, fmt.Errorf("creating connector %s: %w", name, err)
	}
	return c, nil
}

// List returns registered connector names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks whether a connector is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Clear removes all registered connectors (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}
