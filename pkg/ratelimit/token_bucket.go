package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a refillable pool of fractional permits. The ledger is a
// pair {tokens, lastRefill} owned by the bucket's mutex; refill and check
// happen in the same critical section so concurrent acquirers see a
// serialized token count.
type TokenBucket struct {
	capacity   float64
	refillRate float64 // tokens per second

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time

	now func() time.Time
}

// TokenBucketOption configures a TokenBucket.
type TokenBucketOption func(*TokenBucket)

// WithClock overrides the time source, used by tests to make refill
// deterministic.
func WithClock(now func() time.Time) TokenBucketOption {
	return func(tb *TokenBucket) {
		if now != nil {
			tb.now = now
		}
	}
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(capacity, refillRate float64, opts ...TokenBucketOption) (*TokenBucket, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if refillRate <= 0 {
		return nil, ErrInvalidRefillRate
	}

	tb := &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     capacity,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(tb)
	}

	tb.lastRefill = tb.now()

	return tb, nil
}

// TryAcquire takes n tokens from the bucket. The refill computation and the
// availability check are one atomic step; on failure the error carries the
// token count that was available.
func (tb *TokenBucket) TryAcquire(n float64) error {
	if n <= 0 {
		n = 1
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens < n {
		return &InsufficientTokensError{Requested: n, Available: tb.tokens}
	}

	tb.tokens -= n
	return nil
}

// Available reports the current token count without consuming anything.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.tokens
}

func (tb *TokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	}
	tb.lastRefill = now
}
