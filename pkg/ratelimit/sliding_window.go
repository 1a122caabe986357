package ratelimit

import (
	"context"
	"time"
)

// SlidingWindow bounds attempts per key within a rolling time interval.
// Limits are supplied per call because different flows guard different
// budgets (magic links per email, callbacks per IP) through one limiter.
type SlidingWindow struct {
	store Store
}

// NewSlidingWindow creates a sliding-window limiter over the given store.
func NewSlidingWindow(store Store) *SlidingWindow {
	return &SlidingWindow{store: store}
}

// CheckAndRecord atomically counts attempts for the key inside the window
// and records the new one. Once maxAttempts is reached it fails with
// TooManyAttemptsError carrying the time until the window frees a slot.
func (sw *SlidingWindow) CheckAndRecord(ctx context.Context, key string, maxAttempts int, window time.Duration) error {
	if sw.store == nil {
		return ErrStoreRequired
	}
	if key == "" {
		return ErrKeyRequired
	}
	if maxAttempts <= 0 {
		return ErrInvalidLimit
	}
	if window <= 0 {
		return ErrInvalidWindow
	}

	allowed, _, retryAfter, err := sw.store.CountAndRecord(ctx, key, time.Now(), window, maxAttempts)
	if err != nil {
		return err
	}
	if !allowed {
		return &TooManyAttemptsError{Key: key, Limit: maxAttempts, RetryAfter: retryAfter}
	}
	return nil
}

// Reset clears the counter for the key, restoring the full allowance.
// Called after successful authentication so one failure does not linger.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if sw.store == nil {
		return ErrStoreRequired
	}
	if key == "" {
		return ErrKeyRequired
	}
	return sw.store.Delete(ctx, key)
}

// Attempts reports the current attempt count without recording anything.
func (sw *SlidingWindow) Attempts(ctx context.Context, key string, window time.Duration) (int, error) {
	if sw.store == nil {
		return 0, ErrStoreRequired
	}
	if key == "" {
		return 0, ErrKeyRequired
	}
	return sw.store.Count(ctx, key, window)
}
