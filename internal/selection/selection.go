// Package selection tracks the record identifiers an admin has checked for a
// bulk operation. A set belongs to one screen of one session; operations are
// safe for concurrent use by HTTP handlers.
package selection

import "sync"

// Set is a mutable set of record identifiers.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet returns an empty selection.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Toggle adds the id if absent, removes it if present.
func (s *Set) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
}

// SelectAll replaces the selection with exactly the currently visible ids.
// It intentionally does not union with the previous selection: selecting,
// narrowing the filter and selecting again must re-derive from the new view.
func (s *Set) SelectAll(visibleIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{}, len(visibleIDs))
	for _, id := range visibleIDs {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// Prune drops ids that are no longer present in the store, so a selection
// that outlived a refetch cannot feed stale ids into a bulk action.
func (s *Set) Prune(liveIDs []string) {
	live := make(map[string]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ids {
		if _, ok := live[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// Contains reports whether the id is selected.
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the number of selected ids.
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in unspecified order.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
