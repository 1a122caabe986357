// Package ratelimit provides the two rate limiting algorithms used by the
// authentication flows.
//
// TokenBucket protects shared resources: a refillable pool of fractional
// permits with a fixed capacity and a per-second refill rate. TryAcquire
// recomputes the ledger and checks availability inside one critical section,
// so concurrent acquirers always observe a serialized token count.
//
// SlidingWindow protects against brute force: a rolling-window counter keyed
// by identity or IP. CheckAndRecord atomically counts attempts inside the
// window and records the new one, failing with TooManyAttemptsError once the
// limit is reached. Reset clears a key after successful authentication so a
// lone failure does not linger against the caller.
//
// Both algorithms run over pluggable stores. The in-memory store serializes
// per-key mutations under locks; the Redis store uses sorted sets with a Lua
// script so count-and-record stays one atomic step across processes.
//
// # Usage
//
//	bucket, _ := ratelimit.NewTokenBucket(100, 10) // capacity 100, 10 tokens/s
//	if err := bucket.TryAcquire(1); err != nil {
//		var insufficient *ratelimit.InsufficientTokensError
//		if errors.As(err, &insufficient) {
//			// back off; insufficient.Available tokens remain
//		}
//	}
//
//	window := ratelimit.NewSlidingWindow(ratelimit.NewMemoryStore())
//	err := window.CheckAndRecord(ctx, "login:"+email, 5, 15*time.Minute)
//	var tooMany *ratelimit.TooManyAttemptsError
//	if errors.As(err, &tooMany) {
//		// reject; retry allowed after tooMany.RetryAfter
//	}
package ratelimit
