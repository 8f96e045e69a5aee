package sources

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages marketplace source registration and retrieval.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourceConfig
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]SourceConfig)}
}

// NewDefaultRegistry creates a registry pre-loaded with the built-in sources.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, src := range Defaults() {
		r.Register(src)
	}
	return r
}

// Register adds or replaces a source descriptor.
func (r *Registry) Register(src SourceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.Name] = src
}

// Get retrieves a source by name.
func (r *Registry) Get(name string) (SourceConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

// SetEnabled flips the enabled flag for a source.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[name]
	if !ok {
		return fmt.Errorf("unknown source: %s", name)
	}
	src.Enabled = enabled
	r.sources[name] = src
	return nil
}

// Enabled returns the enabled sources sorted by static priority descending,
// name ascending for determinism.
func (r *Registry) Enabled() []SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SourceConfig, 0, len(r.sources))
	for _, src := range r.sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// List returns every registered source name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
