package namedlock

import "sync"

// Registry hands out per-key mutexes. The zero value is not usable; create
// instances with New.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty lock registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held by the caller. Locks are not
// reentrant.
func (r *Registry) Lock(key string) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock for key. The entry is dropped from the registry
// once no goroutine holds or waits for it.
func (r *Registry) Unlock(key string) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		panic("namedlock: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	e.mu.Unlock()
}

// Do runs fn while holding the lock for key.
func (r *Registry) Do(key string, fn func()) {
	r.Lock(key)
	defer r.Unlock(key)
	fn()
}

// Len reports how many keys currently have live lock entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
