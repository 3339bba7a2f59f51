package engine

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "libjxl"

// DefaultWorkers is the size of the parallel runner used by threaded backends.
const DefaultWorkers = 4

// Options configure a backend instance.
type Options struct {
	// Workers bounds the backend's internal parallelism. Zero means DefaultWorkers.
	Workers int
}

// Factory creates a new engine instance.
type Factory func(opts Options) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name.
// It panics if name is empty or already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if name == "" || factory == nil {
		panic("engine: Register with empty name or nil factory")
	}
	if _, dup := registry[name]; dup {
		panic("engine: Register called twice for backend " + name)
	}
	registry[name] = factory
}

// Open creates an engine from the named backend.
func Open(name string, opts Options) (Engine, error) {
	if name == "" {
		name = DefaultBackend
	}
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	eng, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("open backend %q: %w", name, err)
	}
	return eng, nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
