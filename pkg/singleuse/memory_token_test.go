package singleuse_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/singleuse"
)

func newTokenData(t *testing.T, ttl time.Duration) singleuse.TokenData {
	t.Helper()

	secret, err := singleuse.NewSecret()
	require.NoError(t, err)

	now := time.Now()
	return singleuse.TokenData{
		Type:      singleuse.TokenTypeMagicLink,
		Token:     secret,
		Payload:   map[string]string{"email": "user@example.com"},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryTokenStore_Store(t *testing.T) {
	t.Parallel()

	store := singleuse.NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("empty id", func(t *testing.T) {
		err := store.Store(ctx, "", newTokenData(t, time.Minute))
		assert.ErrorIs(t, err, singleuse.ErrTokenIDRequired)
	})

	t.Run("empty secret", func(t *testing.T) {
		data := newTokenData(t, time.Minute)
		data.Token = ""
		err := store.Store(ctx, singleuse.NewTokenID(), data)
		assert.ErrorIs(t, err, singleuse.ErrSecretRequired)
	})

	t.Run("stored record is live", func(t *testing.T) {
		id := singleuse.NewTokenID()
		require.NoError(t, store.Store(ctx, id, newTokenData(t, time.Minute)))

		exists, err := store.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestMemoryTokenStore_Consume(t *testing.T) {
	t.Parallel()

	store := singleuse.NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("success returns stored data once", func(t *testing.T) {
		id := singleuse.NewTokenID()
		data := newTokenData(t, time.Minute)
		require.NoError(t, store.Store(ctx, id, data))

		got, err := store.Consume(ctx, id, data.Token)
		require.NoError(t, err)
		assert.Equal(t, singleuse.TokenTypeMagicLink, got.Type)
		assert.Equal(t, "user@example.com", got.Payload["email"])

		// Second consumption observes absence, not a distinct error.
		got, err = store.Consume(ctx, id, data.Token)
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)
		assert.Nil(t, got)
	})

	t.Run("wrong secret leaves record intact", func(t *testing.T) {
		id := singleuse.NewTokenID()
		data := newTokenData(t, time.Minute)
		require.NoError(t, store.Store(ctx, id, data))

		_, err := store.Consume(ctx, id, "not-the-secret")
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)

		// The legitimate holder can still consume.
		got, err := store.Consume(ctx, id, data.Token)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("expired record returns absence and is deleted", func(t *testing.T) {
		id := singleuse.NewTokenID()
		data := newTokenData(t, -time.Second)
		require.NoError(t, store.Store(ctx, id, data))

		_, err := store.Consume(ctx, id, data.Token)
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)

		exists, err := store.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("expired record deleted even with wrong secret", func(t *testing.T) {
		id := singleuse.NewTokenID()
		require.NoError(t, store.Store(ctx, id, newTokenData(t, -time.Second)))

		_, err := store.Consume(ctx, id, "not-the-secret")
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)

		exists, err := store.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Consume(ctx, singleuse.NewTokenID(), "whatever")
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)
	})
}

func TestMemoryTokenStore_ConcurrentConsume(t *testing.T) {
	t.Parallel()

	store := singleuse.NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	const callers = 50

	id := singleuse.NewTokenID()
	data := newTokenData(t, time.Minute)
	require.NoError(t, store.Store(ctx, id, data))

	var (
		wg     sync.WaitGroup
		start  = make(chan struct{})
		mu     sync.Mutex
		wins   int
		losses int
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			got, err := store.Consume(ctx, id, data.Token)

			mu.Lock()
			defer mu.Unlock()
			if err == nil && got != nil {
				wins++
			} else {
				losses++
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one caller must win the consumption race")
	assert.Equal(t, callers-1, losses)
}

func TestMemoryTokenStore_Exists(t *testing.T) {
	t.Parallel()

	store := singleuse.NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		exists, err := store.Exists(ctx, singleuse.NewTokenID())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("expired treated as absent", func(t *testing.T) {
		id := singleuse.NewTokenID()
		require.NoError(t, store.Store(ctx, id, newTokenData(t, -time.Second)))

		exists, err := store.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestMemoryTokenStore_Delete(t *testing.T) {
	t.Parallel()

	store := singleuse.NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	id := singleuse.NewTokenID()
	data := newTokenData(t, time.Minute)
	require.NoError(t, store.Store(ctx, id, data))

	require.NoError(t, store.Delete(ctx, id))
	// Idempotent: deleting again is not an error.
	require.NoError(t, store.Delete(ctx, id))

	_, err := store.Consume(ctx, id, data.Token)
	assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)
}

func TestNewSecret(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 100 {
		secret, err := singleuse.NewSecret()
		require.NoError(t, err)
		// 32 bytes base64url without padding is 43 characters.
		assert.Len(t, secret, 43)
		_, dup := seen[secret]
		assert.False(t, dup, "secrets must not repeat")
		seen[secret] = struct{}{}
	}
}

// Not parallel: the measurement below is sensitive to scheduler noise.
func TestMemoryTokenStore_ConsumeTimingUniform(t *testing.T) {
	store := singleuse.NewMemoryTokenStore()
	defer store.Close()

	ctx := context.Background()

	const samples = 2000

	// A wrong secret leaves the live record in place, so one token serves
	// every sample of that branch.
	liveID := singleuse.NewTokenID()
	live := newTokenData(t, time.Hour)
	require.NoError(t, store.Store(ctx, liveID, live))

	type expiredToken struct {
		id     string
		secret string
	}
	expired := make([]expiredToken, samples)
	for i := range expired {
		data := newTokenData(t, -time.Second)
		id := singleuse.NewTokenID()
		require.NoError(t, store.Store(ctx, id, data))
		expired[i] = expiredToken{id: id, secret: data.Token}
	}

	wrongSecret, err := singleuse.NewSecret()
	require.NoError(t, err)

	// Warm up both paths before measuring.
	for range 100 {
		_, _ = store.Consume(ctx, liveID, wrongSecret)
	}

	start := time.Now()
	for range samples {
		_, err := store.Consume(ctx, liveID, wrongSecret)
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)
	}
	wrongValueTotal := time.Since(start)

	start = time.Now()
	for _, tok := range expired {
		_, err := store.Consume(ctx, tok.id, tok.secret)
		assert.ErrorIs(t, err, singleuse.ErrTokenNotFound)
	}
	expiredTotal := time.Since(start)

	// Both rejection paths run the same lookup-compare-check sequence, so
	// their aggregate cost must stay in the same order of magnitude. A
	// short-circuit on either check would show up as a large skew.
	slow, fast := wrongValueTotal, expiredTotal
	if fast > slow {
		slow, fast = fast, slow
	}
	require.Positive(t, fast)
	assert.Less(t, float64(slow)/float64(fast), 10.0,
		"wrong-value %v vs expired %v", wrongValueTotal, expiredTotal)
}
