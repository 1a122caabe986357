package ratelimit

import (
	"context"
	"time"
)

// Store is the backing storage for sliding-window counters. Implementations
// must make CountAndRecord one atomic step - separate read-then-write calls
// reintroduce exactly the race the limiter exists to prevent.
type Store interface {
	// CountAndRecord counts attempts inside the window ending at now and,
	// iff the count is below limit, records the new attempt. It returns
	// whether the attempt was recorded, the attempt count after the call,
	// and how long until the oldest attempt rolls out of the window (only
	// meaningful when the attempt was rejected).
	CountAndRecord(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (allowed bool, count int, retryAfter time.Duration, err error)

	// Count returns the number of attempts currently inside the window.
	Count(ctx context.Context, key string, window time.Duration) (int, error)

	// Delete clears all recorded attempts for the key.
	Delete(ctx context.Context, key string) error
}
