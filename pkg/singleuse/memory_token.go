package singleuse

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"sync"
	"time"
)

type tokenRecord struct {
	data   TokenData
	digest [sha256.Size]byte
}

// MemoryTokenStore implements TokenStore with an in-process map guarded by a
// single mutex, so the read-compare-delete sequence is serialized per store.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenRecord

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// MemoryTokenStoreOption configures a MemoryTokenStore.
type MemoryTokenStoreOption func(*MemoryTokenStore)

// WithTokenCleanupInterval sets how often expired records are swept.
func WithTokenCleanupInterval(interval time.Duration) MemoryTokenStoreOption {
	return func(s *MemoryTokenStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryTokenStore creates an in-memory token store with background cleanup.
func NewMemoryTokenStore(opts ...MemoryTokenStoreOption) *MemoryTokenStore {
	s := &MemoryTokenStore{
		tokens:          make(map[string]tokenRecord),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Store inserts the record unconditionally, keeping only the secret digest.
func (s *MemoryTokenStore) Store(ctx context.Context, id string, data TokenData) error {
	if id == "" {
		return ErrTokenIDRequired
	}
	if data.Token == "" {
		return ErrSecretRequired
	}

	rec := tokenRecord{data: data, digest: digest(data.Token)}
	rec.data.Token = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[id] = rec
	return nil
}

// Consume performs the single-use consumption under one lock. The comparison
// and expiry check both execute before any branch so timing does not reveal
// which check failed, and a comparison against a zero digest is burned when
// the record is absent.
func (s *MemoryTokenStore) Consume(ctx context.Context, id, presented string) (*TokenData, error) {
	if id == "" {
		return nil, ErrTokenNotFound
	}

	presentedDigest := digest(presented)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		var zero [sha256.Size]byte
		subtle.ConstantTimeCompare(presentedDigest[:], zero[:])
		return nil, ErrTokenNotFound
	}

	matched := subtle.ConstantTimeCompare(presentedDigest[:], rec.digest[:]) == 1
	expired := now.After(rec.data.ExpiresAt)

	if expired {
		delete(s.tokens, id)
	}
	if !matched || expired {
		return nil, ErrTokenNotFound
	}

	delete(s.tokens, id)

	data := rec.data
	data.Token = presented
	data.Payload = copyPayload(rec.data.Payload)
	return &data, nil
}

// Exists treats expired records as absent and purges them on sight.
func (s *MemoryTokenStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return false, nil
	}
	if time.Now().After(rec.data.ExpiresAt) {
		delete(s.tokens, id)
		return false, nil
	}
	return true, nil
}

// Delete removes the record. Missing records are not an error.
func (s *MemoryTokenStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, id)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryTokenStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *MemoryTokenStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryTokenStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, rec := range s.tokens {
		if now.After(rec.data.ExpiresAt) {
			delete(s.tokens, id)
		}
	}
}

func copyPayload(payload map[string]string) map[string]string {
	if payload == nil {
		return nil
	}
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

var _ TokenStore = (*MemoryTokenStore)(nil)
