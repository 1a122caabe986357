package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with an in-process map. All mutations run
// under one mutex so concurrent callers observe a serialized ledger.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
}

// NewMemoryStore creates an in-memory session store. A cleanupInterval of
// zero disables the background sweep; expired records are still unreachable
// through Get/Exists/TTL.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		done:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

// Create stores a new session, rejecting duplicate IDs.
func (m *MemoryStore) Create(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return ErrSessionExists
	}

	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// Get returns a copy of the session, distinguishing absence from expiry.
// Expired records are left in place so callers can observe ErrSessionExpired;
// the sweep removes them eventually.
func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Expiry check and copy stay under the lock: Touch mutates the shared
	// record and a reader outside the critical section would race it.
	s, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if s.IsExpired() {
		return nil, ErrSessionExpired
	}

	cp := *s
	return &cp, nil
}

// Touch updates the activity timestamp and applies sliding refresh in one
// critical section.
func (m *MemoryStore) Touch(ctx context.Context, id uuid.UUID) (*Session, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if now.After(s.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	s.LastActiveAt = now
	if s.SlidingRefresh {
		s.ExpiresAt = now.Add(s.IdleTimeout)
	}

	cp := *s
	return &cp, nil
}

// Delete revokes a session. Missing sessions are not an error.
func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// DeleteUserSessions revokes every session of the user and returns the count.
func (m *MemoryStore) DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			count++
		}
	}
	return count, nil
}

// Exists agrees with Get: expired records count as absent.
func (m *MemoryStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	return exists && !s.IsExpired(), nil
}

// TTL returns the remaining lifetime, with the same error semantics as Get.
func (m *MemoryStore) TTL(ctx context.Context, id uuid.UUID) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	if !exists {
		return 0, ErrSessionNotFound
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return 0, ErrSessionExpired
	}
	return ttl, nil
}

// DeleteExpired removes all expired sessions.
func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}

var _ Store = (*MemoryStore)(nil)
