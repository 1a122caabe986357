package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimitExceeded is the sentinel wrapped by both limiter errors.
	ErrRateLimitExceeded = errors.New("ratelimit.exceeded")

	ErrInvalidCapacity   = errors.New("ratelimit.invalid_capacity")
	ErrInvalidRefillRate = errors.New("ratelimit.invalid_refill_rate")
	ErrInvalidLimit      = errors.New("ratelimit.invalid_limit")
	ErrInvalidWindow     = errors.New("ratelimit.invalid_window")
	ErrKeyRequired       = errors.New("ratelimit.key_required")
	ErrStoreRequired     = errors.New("ratelimit.store_required")
	ErrStorageFailure    = errors.New("ratelimit.storage_failure")
)

// InsufficientTokensError reports a failed bucket acquisition along with the
// number of tokens that were available at the time.
type InsufficientTokensError struct {
	Requested float64
	Available float64
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: requested %.2f, available %.2f", e.Requested, e.Available)
}

func (e *InsufficientTokensError) Unwrap() error {
	return ErrRateLimitExceeded
}

// TooManyAttemptsError reports an exhausted sliding window and when the
// oldest recorded attempt will roll out of it.
type TooManyAttemptsError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many attempts for %q: limit %d, retry after %s", e.Key, e.Limit, e.RetryAfter)
}

func (e *TooManyAttemptsError) Unwrap() error {
	return ErrRateLimitExceeded
}
