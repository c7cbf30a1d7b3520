package upstream

import (
	"fmt"
	"sort"
	"sync"
)

// AdapterSettings carries the per-adapter knobs a factory may use. Fields an
// adapter does not need are ignored by its factory.
type AdapterSettings struct {
	// BaseURL is the upstream root, no trailing slash required.
	BaseURL string

	// Credential is the bearer token or API key, already env-substituted.
	// May be empty; the adapter then reports unconfigured per request.
	Credential string

	// Header names the credential header for key-based conventions.
	Header string

	// PageSize hints the relations page size where the convention takes one.
	PageSize int
}

// AdapterFactory creates an adapter instance from settings. Each convention
// registers one under its config name.
type AdapterFactory struct {
	// Name is the adapter identifier used in configuration.
	Name string

	// Description is a human-readable summary for diagnostics.
	Description string

	// Create instantiates the adapter.
	Create func(settings AdapterSettings) (Adapter, error)
}

var (
	factoryMu  sync.RWMutex
	factoryMap = make(map[string]AdapterFactory)
)

// RegisterFactory registers an adapter factory under its name. Conventions
// expose an explicit registration function wired from the runtime, avoiding
// init() side effects. Panics on programmer error.
func RegisterFactory(f AdapterFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if f.Name == "" {
		panic("adapter factory name cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("adapter factory %q must have a Create function", f.Name))
	}
	if _, exists := factoryMap[f.Name]; exists {
		panic(fmt.Sprintf("adapter factory %q already registered", f.Name))
	}

	factoryMap[f.Name] = f
}

// IsRegistered reports whether an adapter name is registered.
func IsRegistered(name string) bool {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	_, ok := factoryMap[name]
	return ok
}

// ListAdapterNames returns the registered adapter names, sorted.
func ListAdapterNames() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	names := make([]string, 0, len(factoryMap))
	for name := range factoryMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateAdapter instantiates the named adapter from settings.
func CreateAdapter(name string, settings AdapterSettings) (Adapter, error) {
	factoryMu.RLock()
	f, ok := factoryMap[name]
	factoryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown upstream adapter: %s (registered: %v)", name, ListAdapterNames())
	}
	return f.Create(settings)
}

// ClearFactories removes all registered factories (for testing only).
func ClearFactories() {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	factoryMap = make(map[string]AdapterFactory)
}
