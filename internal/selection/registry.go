package selection

import "sync"

// Registry hands out one Set per (session, screen) pair, so each admin's
// checkboxes on each dashboard are independent, exactly as they were when
// every screen kept its own component state.
type Registry struct {
	mu   sync.Mutex
	sets map[string]*Set
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*Set)}
}

// Get returns the selection for a session and screen, creating it on first
// use.
func (r *Registry) Get(sessionToken, screen string) *Set {
	key := sessionToken + "\x00" + screen
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[key]
	if !ok {
		set = NewSet()
		r.sets[key] = set
	}
	return set
}

// DropSession discards all selections belonging to a session, called on
// logout.
func (r *Registry) DropSession(sessionToken string) {
	prefix := sessionToken + "\x00"
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.sets {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(r.sets, key)
		}
	}
}

// PruneAll drops ids missing from liveIDs in every selection for the screen.
// Called after a store refetch so no selection can hold stale ids.
func (r *Registry) PruneAll(screen string, liveIDs []string) {
	suffix := "\x00" + screen
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, set := range r.sets {
		if len(key) >= len(suffix) && key[len(key)-len(suffix):] == suffix {
			set.Prune(liveIDs)
		}
	}
}
