package keymutex

import "sync"

// Group hands out one mutex per key so callers can serialize work scoped to a
// single username without a global lock. Entries are reference-counted and
// removed once the last holder unlocks, so the map does not grow with the
// total number of keys ever seen.
type Group struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty Group.
func New() *Group {
	return &Group{
		locks: map[string]*entry{},
	}
}

// Lock acquires the mutex for key, blocking while another goroutine holds it.
func (g *Group) Lock(key string) {
	g.mu.Lock()
	e := g.locks[key]
	if e == nil {
		e = &entry{}
		g.locks[key] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. It must pair with a prior Lock on the
// same key from the same goroutine.
func (g *Group) Unlock(key string) {
	g.mu.Lock()
	e := g.locks[key]
	if e == nil {
		g.mu.Unlock()
		panic("keymutex: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(g.locks, key)
	}
	g.mu.Unlock()

	e.mu.Unlock()
}
