// Package plugin hosts server-side tool plugins addressable by the
// inspection client. Each plugin owns one message id: when a request with
// that id arrives, the server hands the plugin the stream to read its
// request, runs it, and hands it the stream again to write its response.
package plugin

import (
	"fmt"
	"sort"

	"github.com/df07/go-render-inspector/pkg/wire"
)

// Plugin is one client-invokable tool.
type Plugin interface {
	// ID returns the message id the plugin answers to. Ids must not
	// collide with the protocol message ids.
	ID() int16
	// Name returns the human-readable plugin name.
	Name() string
	// Deserialize reads the request payload from the stream.
	Deserialize(r *wire.Reader) error
	// Run executes the plugin after its request has been read.
	Run() error
	// Serialize writes the full response, starting with the plugin id so
	// the client can route it.
	Serialize(w *wire.Writer) error
}

// DuplicateIDError reports a registration against an already occupied id.
type DuplicateIDError struct {
	ID       int16
	Existing string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("plugin: id %d already registered by %q", e.ID, e.Existing)
}

// Registry is the id-keyed plugin lookup table. Register all plugins
// before serving; lookups are not synchronized against registration.
type Registry struct {
	plugins map[int16]Plugin
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[int16]Plugin)}
}

// Add registers a plugin under its id
func (r *Registry) Add(p Plugin) error {
	if existing, ok := r.plugins[p.ID()]; ok {
		return &DuplicateIDError{ID: p.ID(), Existing: existing.Name()}
	}
	r.plugins[p.ID()] = p
	return nil
}

// ByID returns the plugin registered under id, or nil
func (r *Registry) ByID(id int16) Plugin {
	return r.plugins[id]
}

// ByName returns the first plugin with the given name, or nil
func (r *Registry) ByName(name string) Plugin {
	for _, id := range r.IDs() {
		if p := r.plugins[id]; p.Name() == name {
			return p
		}
	}
	return nil
}

// IDs returns the registered ids in ascending order
func (r *Registry) IDs() []int16 {
	ids := make([]int16, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered plugins
func (r *Registry) Len() int { return len(r.plugins) }
