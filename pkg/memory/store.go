package memory

import (
	"sync"
	"time"
)

// Store maps session ids to their turn history.
// All methods are safe for concurrent use. Nothing here performs I/O.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	newID    func(now time.Time) string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]Turn),
		newID:    generateSessionID,
	}
}

// GetOrCreate resolves ref against the store.
// A Known id that is present returns a copy of its turns. Fresh, or a Known id
// the store does not hold, yields a newly generated id with empty history that
// is NOT inserted: the session only comes into existence on its first Append.
func (s *Store) GetOrCreate(ref SessionRef, now time.Time) (string, []Turn, bool) {
	if id, known := ref.ID(); known {
		s.mu.RLock()
		turns, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return id, cloneTurns(turns), false
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		id := s.newID(now)
		if _, taken := s.sessions[id]; !taken {
			return id, []Turn{}, true
		}
	}
}

// Append records a user turn followed by an assistant turn, both stamped now.
// It is the only mutation path and creates the session entry if needed.
func (s *Store) Append(id, userContent, assistantContent string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[id]
	if n := len(turns); n > 0 && now.Before(turns[n-1].Timestamp) {
		// keep timestamps non-decreasing within a session
		now = turns[n-1].Timestamp
	}
	s.sessions[id] = append(turns,
		Turn{Role: RoleUser, Content: userContent, Timestamp: now},
		Turn{Role: RoleAssistant, Content: assistantContent, Timestamp: now},
	)
}

// Snapshot returns a copy of the full history of id. Unknown ids yield nil.
func (s *Store) Snapshot(id string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return cloneTurns(turns)
}

// Has reports whether id is currently stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes every session whose last turn is older than idle relative to now.
// The idle check and the delete run under the same write lock, so a session
// cannot be evicted while an Append for it is in flight.
func (s *Store) Sweep(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, turns := range s.sessions {
		if last := turns[len(turns)-1].Timestamp; now.Sub(last) > idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
