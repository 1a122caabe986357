package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/ratelimit"
)

func TestNewTokenBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		capacity    float64
		refillRate  float64
		expectError error
	}{
		{name: "zero capacity", capacity: 0, refillRate: 1, expectError: ratelimit.ErrInvalidCapacity},
		{name: "negative capacity", capacity: -1, refillRate: 1, expectError: ratelimit.ErrInvalidCapacity},
		{name: "zero refill rate", capacity: 10, refillRate: 0, expectError: ratelimit.ErrInvalidRefillRate},
		{name: "valid", capacity: 10, refillRate: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tb, err := ratelimit.NewTokenBucket(tt.capacity, tt.refillRate)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, tb)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, tb)
			}
		})
	}
}

func TestTokenBucket_TryAcquire(t *testing.T) {
	t.Parallel()

	t.Run("capacity exhausts without refill", func(t *testing.T) {
		t.Parallel()

		// Frozen clock: no refill between acquisitions.
		frozen := time.Now()
		tb, err := ratelimit.NewTokenBucket(10, 100, ratelimit.WithClock(func() time.Time { return frozen }))
		require.NoError(t, err)

		for i := range 10 {
			require.NoError(t, tb.TryAcquire(1), "acquisition %d should succeed", i+1)
		}

		err = tb.TryAcquire(1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)

		var insufficient *ratelimit.InsufficientTokensError
		require.ErrorAs(t, err, &insufficient)
		assert.InDelta(t, 0, insufficient.Available, 0.0001)
	})

	t.Run("refill restores tokens up to capacity", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tb, err := ratelimit.NewTokenBucket(10, 2, ratelimit.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		for range 10 {
			require.NoError(t, tb.TryAcquire(1))
		}

		// Two seconds at 2 tokens/s refills 4 tokens.
		now = now.Add(2 * time.Second)
		assert.InDelta(t, 4, tb.Available(), 0.0001)

		// A long idle period never exceeds capacity.
		now = now.Add(time.Hour)
		assert.InDelta(t, 10, tb.Available(), 0.0001)
	})

	t.Run("fractional acquisition", func(t *testing.T) {
		t.Parallel()

		frozen := time.Now()
		tb, err := ratelimit.NewTokenBucket(1, 1, ratelimit.WithClock(func() time.Time { return frozen }))
		require.NoError(t, err)

		require.NoError(t, tb.TryAcquire(0.5))
		require.NoError(t, tb.TryAcquire(0.5))
		assert.Error(t, tb.TryAcquire(0.5))
	})

	t.Run("non-positive request treated as one", func(t *testing.T) {
		t.Parallel()

		frozen := time.Now()
		tb, err := ratelimit.NewTokenBucket(1, 1, ratelimit.WithClock(func() time.Time { return frozen }))
		require.NoError(t, err)

		require.NoError(t, tb.TryAcquire(0))
		assert.Error(t, tb.TryAcquire(0))
	})
}

func TestTokenBucket_ConcurrentLedger(t *testing.T) {
	t.Parallel()

	frozen := time.Now()
	tb, err := ratelimit.NewTokenBucket(100, 1, ratelimit.WithClock(func() time.Time { return frozen }))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	// 200 concurrent acquirers against 100 tokens: exactly 100 must win.
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tb.TryAcquire(1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, successes)
}
