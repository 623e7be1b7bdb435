package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"iqplay/internal/app"
	"iqplay/internal/domain"
)

// SessionStore keeps live sessions in process and claims each game in Redis
// so no two instances run a round of the same game at once. The session
// itself, with its timers and subscribers, never leaves the process.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

// Put claims the game with SET NX. The claim expires after ttl unless the
// round keeps being used.
func (s *SessionStore) Put(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[session.ID()]; ok && existing != session && !existing.State().Finished() {
		return domain.ErrSessionActive
	}
	claimed, err := s.client.SetNX(context.Background(), s.key(session.ID()), "1", s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim session %s: %w", session.ID(), err)
	}
	if !claimed {
		return domain.ErrSessionActive
	}
	s.sessions[session.ID()] = session
	return nil
}

// Get returns the local session and extends the claim of a running round.
func (s *SessionStore) Get(gameID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[gameID]
	s.mu.RUnlock()
	if ok && !session.State().Finished() {
		// best-effort refresh
		_ = s.client.Expire(context.Background(), s.key(gameID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Release(gameID string) {
	_ = s.client.Del(context.Background(), s.key(gameID)).Err()
}

func (s *SessionStore) Delete(gameID string) {
	s.mu.Lock()
	delete(s.sessions, gameID)
	s.mu.Unlock()
	s.Release(gameID)
}

func (s *SessionStore) key(gameID string) string {
	return "iqplay:session:" + gameID
}
