package core

import (
	"context"
	"slices"
	"sync"

	"github.com/go-drift/kite/pkg/event"
)

type registryEntry struct {
	scope     *event.Dispatcher
	key       any
	ancestors []uint64
}

// Registry tracks the mounted nodes that carry a key, so that runtimes can find
// descendants by key. One registry serves one window.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Len returns the number of keyed nodes currently mounted.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) add(scope *event.Dispatcher, key any, ancestors []*event.Dispatcher) {
	ids := make([]uint64, len(ancestors))
	for i, a := range ancestors {
		ids[i] = a.ID()
	}
	r.mu.Lock()
	r.entries = append(r.entries, registryEntry{scope: scope, key: key, ancestors: ids})
	r.mu.Unlock()
}

func (r *Registry) remove(scope *event.Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = slices.DeleteFunc(r.entries, func(e registryEntry) bool {
		return e.scope == scope
	})
}

// find returns the first keyed descendant of root in mount order whose key
// satisfies pred.
func (r *Registry) find(root *event.Dispatcher, pred func(key any) bool) (*event.Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := root.ID()
	for _, e := range r.entries {
		if slices.Contains(e.ancestors, id) && pred(e.key) {
			return e.scope, true
		}
	}
	return nil, false
}

// Lookup finds descendant nodes of one node by key.
type Lookup struct {
	scope    *event.Dispatcher
	registry *Registry
}

// Find returns the scope of a descendant whose key satisfies pred. Mounted
// descendants are searched first; otherwise Find waits until a matching
// descendant is mounted or ctx is done.
func (l Lookup) Find(ctx context.Context, pred func(key any) bool) (*event.Dispatcher, error) {
	for {
		// Listen before searching so a node mounted in between is not missed.
		w := event.Listen[event.ElementCreated](l.scope)
		if l.registry != nil {
			if d, ok := l.registry.find(l.scope, pred); ok {
				w.Cancel()
				return d, nil
			}
		}
		select {
		case ev := <-w.C():
			if pred(ev.Key) {
				return ev.Dispatcher, nil
			}
		case <-ctx.Done():
			w.Cancel()
			return nil, ctx.Err()
		}
	}
}

// FindEq is Find with a key equality predicate. Keys must be comparable.
func (l Lookup) FindEq(ctx context.Context, key any) (*event.Dispatcher, error) {
	return l.Find(ctx, func(k any) bool { return k == key })
}
