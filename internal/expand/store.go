// Package expand keeps per-path expand/collapse state for the rendered tree.
// State is keyed by path string so it survives rebuilds from independently
// decoded snapshots.
package expand

import "sync"

// Store maps path keys to expanded (true) or collapsed (false). Paths that
// were never set are expanded. Entries are never evicted.
type Store struct {
	mu    sync.RWMutex
	state map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: make(map[string]bool)}
}

// IsExpanded returns the stored value for path, or true when unseen.
func (s *Store) IsExpanded(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[path]
	if !ok {
		return true
	}
	return v
}

// Toggle flips the effective state of path and returns the new value.
func (s *Store) Toggle(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.state[path]
	if !ok {
		cur = true
	}
	s.state[path] = !cur
	return !cur
}

// Set stores value for one path.
func (s *Store) Set(path string, value bool) {
	s.mu.Lock()
	s.state[path] = value
	s.mu.Unlock()
}

// SetAll overwrites the entry of every given path. Callers pass the path
// keys of the current render only.
func (s *Store) SetAll(paths []string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.state[p] = value
	}
}

// Len returns the number of stored entries, including stale ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}

// Reset drops every entry. Used when a session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = make(map[string]bool)
	s.mu.Unlock()
}
