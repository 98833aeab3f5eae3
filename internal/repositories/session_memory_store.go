package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/database"
)

type memorySession struct {
	userID    uint
	expiresAt time.Time
}

// MemorySessionStore is an in-process SessionStore for single-instance deployments and tests.
type MemorySessionStore struct {
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex

	nextSweep time.Time
}

// NewMemorySessionStore creates a new instance of MemorySessionStore.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	id := uuid.NewString()
	s.sessions[id] = memorySession{userID: userID, expiresAt: now.Add(s.ttl)}
	return id, nil
}

// sweep drops expired sessions, at most once per ttl. Callers hold mu.
func (s *MemorySessionStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("session: %w", database.ErrNotFound)
	}
	now := s.now()
	if !now.Before(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return 0, fmt.Errorf("session: %w", database.ErrNotFound)
	}
	sess.expiresAt = now.Add(s.ttl)
	s.sessions[sessionID] = sess
	return sess.userID, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
