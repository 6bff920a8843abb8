package sources

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/tripprices/internal/pkg/config"
)

type Factory func(cfg *config.Config, deps Deps) Source

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a source available by name. Adapters call it from init.
func Register(name string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("sources: empty name in Register")
	}
	if f == nil {
		panic("sources: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("sources: duplicate registration for " + n)
	}
	registry[n] = f
}

func FactoryByName(name string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build instantiates the named sources in the given order.
func Build(names []string, cfg *config.Config, deps Deps) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, name := range names {
		f, ok := FactoryByName(name)
		if !ok {
			return nil, fmt.Errorf("sources: unknown source %q (available: %v)", name, AvailableNames())
		}
		out = append(out, f(cfg, deps))
	}
	return out, nil
}
