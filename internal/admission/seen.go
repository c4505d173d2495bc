package admission

import "sync"

// seenStore is the dedup marker set. Upstream delivery is at-least-once, so
// replays of an already-processed id are expected and must stay side-effect
// free.
type seenStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newSeenStore() *seenStore {
	return &seenStore{ids: make(map[string]struct{})}
}

// add marks the id as processed, returning false when it was already present.
func (s *seenStore) add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *seenStore) contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}
