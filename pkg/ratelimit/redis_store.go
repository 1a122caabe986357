package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// countAndRecordScript prunes expired attempts, counts the remainder and
// records the new attempt iff the limit allows - one atomic step server-side.
// Scores are unix milliseconds; members carry a random suffix so concurrent
// attempts in the same millisecond stay distinct.
var countAndRecordScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[2]) then
	redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
	return {1, count + 1, 0}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, count, oldest[2]}
`)

// RedisStore implements Store on Redis sorted sets.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix overrides the default "authkit:ratelimit" key prefix.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed sliding-window store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "authkit:ratelimit",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

// CountAndRecord runs the atomic count-and-record script.
func (s *RedisStore) CountAndRecord(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int, time.Duration, error) {
	nowMs := now.UnixMilli()
	cutoffMs := now.Add(-window).UnixMilli()
	member := uuid.NewString()

	res, err := countAndRecordScript.Run(ctx, s.client,
		[]string{s.key(key)},
		cutoffMs, limit, nowMs, member, window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, 0, errors.Join(ErrStorageFailure, err)
	}
	if len(res) != 3 {
		return false, 0, 0, ErrStorageFailure
	}

	allowed := toInt64(res[0]) == 1
	count := int(toInt64(res[1]))

	var retryAfter time.Duration
	if !allowed {
		oldestMs := toInt64(res[2])
		if oldestMs > 0 {
			retryAfter = time.UnixMilli(oldestMs).Add(window).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
	}

	return allowed, count, retryAfter, nil
}

// Count prunes and counts attempts inside the window.
func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	cutoffMs := time.Now().Add(-window).UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, s.key(key), "-inf", strconv.FormatInt(cutoffMs, 10))
	card := pipe.ZCard(ctx, s.key(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}

	return int(card.Val()), nil
}

// Delete clears the key's window.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		// Sorted-set scores come back as float strings.
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return int64(f)
	default:
		return 0
	}
}

var _ Store = (*RedisStore)(nil)
