package report

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps format names to their renderers.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// Default returns a Registry holding the plain, root, json and table formats.
func Default() *Registry {
	reg := NewRegistry()
	reg.Register(Plain{})
	reg.Register(RootOnly{})
	reg.Register(JSON{Indent: "  "})
	reg.Register(NewTable(false))
	return reg
}

// Register adds a renderer. Panics on duplicate format to surface misconfiguration early.
func (r *Registry) Register(rd Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.renderers[rd.Format()]; exists {
		panic(fmt.Sprintf("report registry: duplicate format %q", rd.Format()))
	}
	r.renderers[rd.Format()] = rd
}

// Replace registers rd, overwriting any renderer with the same format.
func (r *Registry) Replace(rd Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[rd.Format()] = rd
}

// Get returns the renderer for the given format.
func (r *Registry) Get(format string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("no renderer registered for format %q", format)
	}
	return rd, nil
}

// Formats returns all registered format names, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.renderers))
	for k := range r.renderers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
