package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store maps session tokens to user ids. Safe for concurrent use by login
// calls and channel-authentication attempts.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]string // token → userID
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]string),
	}
}

// Create issues a fresh unpredictable token for the given user id.
// A user may hold any number of concurrent sessions.
func (s *Store) Create(userID string) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = userID
	s.mu.Unlock()

	return token
}

// Resolve looks up the user id owning a token.
func (s *Store) Resolve(token string) (string, bool) {
	s.mu.RLock()
	userID, ok := s.sessions[token]
	s.mu.RUnlock()
	return userID, ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
