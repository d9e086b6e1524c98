package scene

import (
	"sort"
	"sync"
)

// Factory constructs a fresh component of one registered type.
type Factory func() Component

type registryEntry struct {
	factory  Factory
	category string
}

// registry is the process-wide component type table. It is read-mostly
// after startup; registration must complete before any scene loads.
type registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

var componentRegistry = &registry{entries: make(map[string]registryEntry)}

// RegisterComponent maps a type tag to a constructor and an editor
// category. Registration is idempotent; a duplicate tag takes the later
// registration.
func RegisterComponent(typeTag, category string, f Factory) {
	componentRegistry.mu.Lock()
	defer componentRegistry.mu.Unlock()
	componentRegistry.entries[typeTag] = registryEntry{factory: f, category: category}
}

// NewComponent instantiates a registered type. The second result reports
// whether the tag was known; deserialization uses it to fall back to a
// placeholder.
func NewComponent(typeTag string) (Component, bool) {
	componentRegistry.mu.RLock()
	e, ok := componentRegistry.entries[typeTag]
	componentRegistry.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.factory(), true
}

// ComponentCategory reports the registered editor category for a tag.
func ComponentCategory(typeTag string) (string, bool) {
	componentRegistry.mu.RLock()
	defer componentRegistry.mu.RUnlock()
	e, ok := componentRegistry.entries[typeTag]
	return e.category, ok
}

// RegisteredComponents lists known type tags in sorted order.
func RegisteredComponents() []string {
	componentRegistry.mu.RLock()
	defer componentRegistry.mu.RUnlock()
	out := make([]string, 0, len(componentRegistry.entries))
	for tag := range componentRegistry.entries {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
