package memory

import (
	"sync"

	"iqplay/internal/app"
	"iqplay/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Put registers session under its game id, replacing a finished one.
func (s *SessionStore) Put(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[session.ID()]; ok && existing != session && !existing.State().Finished() {
		return domain.ErrSessionActive
	}
	s.sessions[session.ID()] = session
	return nil
}

func (s *SessionStore) Get(gameID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[gameID]
	return session, ok
}

// Release is a no-op: liveness is read from the session state itself.
func (s *SessionStore) Release(string) {}

func (s *SessionStore) Delete(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, gameID)
}
