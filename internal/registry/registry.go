package registry

import (
	"sort"

	"github.com/vk/modgate/internal/invoker"
)

// Entry is one scanned module: its reprocessed source text and the invoker
// compiled from it. Invoker is nil when the module declared no handler or
// failed to compile; callers must check before invoking.
type Entry struct {
	Source  string
	Invoker *invoker.Invoker
}

// Registry maps module names to entries for a single directory scan.
type Registry struct {
	entries map[string]*Entry
}

// Lookup returns the entry stored under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	entry, ok := r.entries[name]
	return entry, ok
}

// Names returns all registered module names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.entries)
}
