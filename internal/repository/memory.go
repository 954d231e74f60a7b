package repository

import (
	"context"
	"sync"
	"time"

	"lex-dialog/internal/domain"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memoryStore keeps encoded sessions in a map so callers never share state
// with the store. Expired entries are dropped when they are next touched.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionKey]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func newMemoryStore(ttl time.Duration, now func() time.Time) *memoryStore {
	return &memoryStore{
		sessions: make(map[domain.SessionKey]memoryEntry),
		ttl:      ttl,
		now:      now,
	}
}

func (s *memoryStore) Get(_ context.Context, key domain.SessionKey) (*domain.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.sessions[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.sessions, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return decodeSession(key, e.data)
}

func (s *memoryStore) Put(_ context.Context, sess *domain.Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key] = memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key domain.SessionKey) (*domain.Session, error) {
	s.mu.Lock()
	e, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	return decodeSession(key, e.data)
}
