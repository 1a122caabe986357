package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// MemoryStore implements Store with per-key timestamp slices. Each key owns
// its own lock so hot keys do not serialize unrelated callers.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*window

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often empty windows are swept.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryStore creates an in-memory sliding-window store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*window),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) window(key string) *window {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[key]; ok {
		return w
	}
	w = &window{}
	s.windows[key] = w
	return w
}

// CountAndRecord prunes, counts and records under the key's lock so the
// check and the write are one atomic step.
func (s *MemoryStore) CountAndRecord(ctx context.Context, key string, now time.Time, windowSize time.Duration, limit int) (bool, int, time.Duration, error) {
	w := s.window(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-windowSize)
	valid := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	w.timestamps = valid

	if len(w.timestamps) >= limit {
		retryAfter := w.timestamps[0].Add(windowSize).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, len(w.timestamps), retryAfter, nil
	}

	w.timestamps = append(w.timestamps, now)
	return true, len(w.timestamps), 0, nil
}

// Count prunes and counts attempts inside the window.
func (s *MemoryStore) Count(ctx context.Context, key string, windowSize time.Duration) (int, error) {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-windowSize)
	count := 0
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	return count, nil
}

// Delete clears the key's window.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *MemoryStore) cleanupLoop() {
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

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		w.mu.Lock()
		if len(w.timestamps) == 0 {
			delete(s.windows, key)
		}
		w.mu.Unlock()
	}
}

var _ Store = (*MemoryStore)(nil)
