package oauth

import (
	"context"
	"log"
	"sync"
	"time"
)

// MemorySessionStore is a process-local SessionStore. It is the right
// choice for a single instance and for tests; multi-instance
// deployments need the Redis store so callbacks can land on any
// replica.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) Put(_ context.Context, state string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = memoryEntry{sess: sess, expiresAt: s.now().Add(SessionTTL)}
	return nil
}

func (s *MemorySessionStore) Take(_ context.Context, state string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return Session{}, ErrSessionInvalid
	}
	delete(s.entries, state)

	if s.now().After(entry.expiresAt) {
		return Session{}, ErrSessionInvalid
	}
	return entry.sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, state)
	return nil
}

// StartCleanupJob sweeps expired sessions every 10 minutes. Abandoned
// logins (browser closed mid-flow) otherwise accumulate until restart.
func (s *MemorySessionStore) StartCleanupJob() {
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		for range ticker.C {
			if n := s.sweep(); n > 0 {
				log.Printf("OAuth cleanup: Deleted %d expired sessions", n)
			}
		}
	}()
}

func (s *MemorySessionStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for state, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, state)
			removed++
		}
	}
	return removed
}
