package singleuse

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript performs the full consumption sequence server-side so that
// read, expiry check, digest comparison and deletion are one atomic step.
// The comparison works on SHA-256 digests, never on the raw secret.
var consumeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return false
end
local rec = cjson.decode(raw)
if tonumber(rec.expires_at_unix) <= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
	return false
end
if rec.digest == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return raw
end
return false
`)

type redisTokenRecord struct {
	Type          TokenType         `json:"type"`
	Digest        string            `json:"digest"`
	Payload       map[string]string `json:"payload,omitempty"`
	CreatedAtUnix int64             `json:"created_at_unix"`
	ExpiresAtUnix int64             `json:"expires_at_unix"`
}

// RedisTokenStore implements TokenStore on Redis. Every record carries both a
// Redis TTL (storage bound) and an explicit expiry field checked inside the
// consume script, so clock skew between writers cannot resurrect a token.
type RedisTokenStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisTokenStoreOption configures a RedisTokenStore.
type RedisTokenStoreOption func(*RedisTokenStore)

// WithTokenKeyPrefix overrides the default "authkit:token" key prefix.
func WithTokenKeyPrefix(prefix string) RedisTokenStoreOption {
	return func(s *RedisTokenStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisTokenStore creates a Redis-backed token store.
func NewRedisTokenStore(client redis.UniversalClient, opts ...RedisTokenStoreOption) *RedisTokenStore {
	s := &RedisTokenStore{
		client: client,
		prefix: "authkit:token",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisTokenStore) key(id string) string {
	return s.prefix + ":" + id
}

// Store inserts the record unconditionally with a TTL matching its expiry.
func (s *RedisTokenStore) Store(ctx context.Context, id string, data TokenData) error {
	if id == "" {
		return ErrTokenIDRequired
	}
	if data.Token == "" {
		return ErrSecretRequired
	}

	d := digest(data.Token)
	rec := redisTokenRecord{
		Type:          data.Type,
		Digest:        hex.EncodeToString(d[:]),
		Payload:       data.Payload,
		CreatedAtUnix: data.CreatedAt.Unix(),
		ExpiresAtUnix: data.ExpiresAt.Unix(),
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}

	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, s.key(id), encoded, ttl).Err(); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

// Consume runs the atomic consume script. Of N concurrent calls exactly one
// observes the record; the script deletes expired records unconditionally.
func (s *RedisTokenStore) Consume(ctx context.Context, id, presented string) (*TokenData, error) {
	if id == "" || presented == "" {
		return nil, ErrTokenNotFound
	}

	d := digest(presented)
	now := time.Now().Unix()

	res, err := consumeScript.Run(ctx, s.client, []string{s.key(id)}, hex.EncodeToString(d[:]), now).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}

	raw, ok := res.(string)
	if !ok || raw == "" {
		return nil, ErrTokenNotFound
	}

	var rec redisTokenRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: decode token record: %w", ErrStorageFailure, err)
	}

	return &TokenData{
		Type:      rec.Type,
		Token:     presented,
		Payload:   rec.Payload,
		CreatedAt: time.Unix(rec.CreatedAtUnix, 0),
		ExpiresAt: time.Unix(rec.ExpiresAtUnix, 0),
	}, nil
}

// Exists reports whether a live record exists. Redis TTL already removes
// expired keys, so a plain EXISTS agrees with Consume's expiry notion.
func (s *RedisTokenStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, errors.Join(ErrStorageFailure, err)
	}
	return n > 0, nil
}

// Delete removes the record. Missing records are not an error.
func (s *RedisTokenStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

var _ TokenStore = (*RedisTokenStore)(nil)
