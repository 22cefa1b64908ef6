package quickapp

import (
	"sync"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// GlobalStore holds the emulated controller's global variables. It exists
// so offline scripts that read and write globals keep working without a
// remote controller.
type GlobalStore struct {
	mu    sync.RWMutex
	names []string
	vars  map[string]codec.Value
}

// NewGlobalStore creates an empty global-variable store.
func NewGlobalStore() *GlobalStore {
	return &GlobalStore{vars: make(map[string]codec.Value)}
}

// Get returns the value of the named global.
func (g *GlobalStore) Get(name string) (codec.Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vars[name]
	return v, ok
}

// Set stores value under name, creating the global if needed.
func (g *GlobalStore) Set(name string, value codec.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.vars[name]; !exists {
		g.names = append(g.names, name)
	}
	g.vars[name] = value
}

// Delete removes the named global. It reports whether it existed.
func (g *GlobalStore) Delete(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.vars[name]; !exists {
		return false
	}
	delete(g.vars, name)
	for i, n := range g.names {
		if n == name {
			g.names = append(g.names[:i], g.names[i+1:]...)
			break
		}
	}
	return true
}

// List returns all globals as wire objects {name, value} in creation order.
func (g *GlobalStore) List() *codec.Array {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := codec.NewArray()
	for _, name := range g.names {
		entry := codec.NewMap()
		entry.Set("name", codec.String(name))
		entry.Set("value", g.vars[name])
		out.Append(entry)
	}
	return out
}
