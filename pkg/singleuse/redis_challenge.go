package singleuse

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisChallengeRecord struct {
	UserID        uuid.UUID `json:"user_id"`
	Digest        string    `json:"digest"`
	CreatedAtUnix int64     `json:"created_at_unix"`
	ExpiresAtUnix int64     `json:"expires_at_unix"`
}

// RedisChallengeStore implements ChallengeStore on Redis using the same
// atomic consume script as RedisTokenStore.
type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisChallengeStoreOption configures a RedisChallengeStore.
type RedisChallengeStoreOption func(*RedisChallengeStore)

// WithChallengeKeyPrefix overrides the default "authkit:challenge" key prefix.
func WithChallengeKeyPrefix(prefix string) RedisChallengeStoreOption {
	return func(s *RedisChallengeStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisChallengeStore creates a Redis-backed challenge store.
func NewRedisChallengeStore(client redis.UniversalClient, opts ...RedisChallengeStoreOption) *RedisChallengeStore {
	s := &RedisChallengeStore{
		client: client,
		prefix: "authkit:challenge",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// key derives the storage key from (user ID, challenge digest). The digest in
// the key means a wrong challenge resolves to a missing key, which is the
// same observable outcome as a failed comparison.
func (s *RedisChallengeStore) key(userID uuid.UUID, challenge string) string {
	d := digest(challenge)
	return s.prefix + ":" + userID.String() + ":" + hex.EncodeToString(d[:])
}

// Store inserts the challenge with a TTL matching its expiry.
func (s *RedisChallengeStore) Store(ctx context.Context, data ChallengeData) error {
	if data.UserID == uuid.Nil {
		return ErrUserIDRequired
	}
	if data.Challenge == "" {
		return ErrSecretRequired
	}

	d := digest(data.Challenge)
	rec := redisChallengeRecord{
		UserID:        data.UserID,
		Digest:        hex.EncodeToString(d[:]),
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

	if err := s.client.Set(ctx, s.key(data.UserID, data.Challenge), encoded, ttl).Err(); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

// Consume runs the atomic consume script against the derived key.
func (s *RedisChallengeStore) Consume(ctx context.Context, userID uuid.UUID, challenge string) (*ChallengeData, error) {
	if userID == uuid.Nil || challenge == "" {
		return nil, ErrChallengeNotFound
	}

	d := digest(challenge)
	now := time.Now().Unix()

	res, err := consumeScript.Run(ctx, s.client, []string{s.key(userID, challenge)}, hex.EncodeToString(d[:]), now).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}

	raw, ok := res.(string)
	if !ok || raw == "" {
		return nil, ErrChallengeNotFound
	}

	var rec redisChallengeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: decode challenge record: %w", ErrStorageFailure, err)
	}

	return &ChallengeData{
		UserID:    rec.UserID,
		Challenge: challenge,
		CreatedAt: time.Unix(rec.CreatedAtUnix, 0),
		ExpiresAt: time.Unix(rec.ExpiresAtUnix, 0),
	}, nil
}

// Exists reports whether a live challenge exists.
func (s *RedisChallengeStore) Exists(ctx context.Context, userID uuid.UUID, challenge string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(userID, challenge)).Result()
	if err != nil {
		return false, errors.Join(ErrStorageFailure, err)
	}
	return n > 0, nil
}

// Delete removes the challenge. Missing records are not an error.
func (s *RedisChallengeStore) Delete(ctx context.Context, userID uuid.UUID, challenge string) error {
	if err := s.client.Del(ctx, s.key(userID, challenge)).Err(); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

var _ ChallengeStore = (*RedisChallengeStore)(nil)
