package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
// When maxSessions is positive, saving a new session beyond the cap
// evicts the least-recently-updated session first.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]domain.ChatSession
	maxSessions int
}

// NewSessionStore creates an unbounded in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.ChatSession)}
}

// NewBoundedSessionStore creates a session store holding at most max
// sessions. A non-positive max means unbounded.
func NewBoundedSessionStore(max int) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]domain.ChatSession),
		maxSessions: max,
	}
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// Save stores or replaces a session.
func (s *SessionStore) Save(_ context.Context, session domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		s.evictIfFull()
	}
	s.sessions[session.ID] = session
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// List returns all sessions.
func (s *SessionStore) List(_ context.Context) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session)
	}
	return result, nil
}

// evictIfFull removes the least-recently-updated session when the cap is
// reached. Caller holds the write lock.
func (s *SessionStore) evictIfFull() {
	if s.maxSessions <= 0 || len(s.sessions) < s.maxSessions {
		return
	}

	var oldestID string
	for id, session := range s.sessions {
		if oldestID == "" || session.UpdatedAt.Before(s.sessions[oldestID].UpdatedAt) {
			oldestID = id
		}
	}
	delete(s.sessions, oldestID)
}
