package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// createScript inserts the session iff the ID is unused and registers it in
// the per-user index in the same atomic step.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[2]))
redis.call('SADD', KEYS[2], ARGV[3])
return 1
`)

// touchScript updates last-active and applies sliding refresh server-side so
// concurrent touches never interleave with reads.
var touchScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return false
end
local rec = cjson.decode(raw)
local now = tonumber(ARGV[1])
if rec.expires_at_unix <= now then
	return 'expired'
end
rec.last_active_unix = now
if rec.sliding then
	rec.expires_at_unix = now + rec.idle_timeout_seconds
end
local encoded = cjson.encode(rec)
redis.call('SET', KEYS[1], encoded, 'EX', rec.expires_at_unix - now)
return encoded
`)

// deleteScript removes the session and its index entry together.
var deleteScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return 0
end
local rec = cjson.decode(raw)
redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[2] .. ':' .. rec.user_id, ARGV[1])
return 1
`)

// deleteUserScript revokes every session in the user index and reports how
// many live records were actually removed.
var deleteUserScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
local count = 0
for _, id in ipairs(ids) do
	count = count + redis.call('DEL', ARGV[1] .. ':' .. id)
end
redis.call('DEL', KEYS[1])
return count
`)

type redisSessionRecord struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	DeviceID           string  `json:"device_id,omitempty"`
	Email              string  `json:"email"`
	CreatedAtUnix      int64   `json:"created_at_unix"`
	LastActiveUnix     int64   `json:"last_active_unix"`
	ExpiresAtUnix      int64   `json:"expires_at_unix"`
	IdleTimeoutSeconds int64   `json:"idle_timeout_seconds"`
	Sliding            bool    `json:"sliding"`
	IPAddress          string  `json:"ip_address,omitempty"`
	UserAgent          string  `json:"user_agent,omitempty"`
	OAuthProvider      string  `json:"oauth_provider,omitempty"`
	LoginRiskScore     float64 `json:"login_risk_score"`
}

// RedisStore implements Store on Redis. Session records live under
// "<prefix>:<id>" with a TTL; a per-user set under "<prefix>:user:<uid>"
// supports bulk revocation.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "authkit:session" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "authkit:session",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisStore) key(id uuid.UUID) string {
	return s.prefix + ":" + id.String()
}

func (s *RedisStore) userKey(userID uuid.UUID) string {
	return s.prefix + ":user:" + userID.String()
}

// Create stores the session, failing with ErrSessionExists on a duplicate ID.
func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	encoded, err := json.Marshal(toRecord(sess))
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}

	ttl := int64(time.Until(sess.ExpiresAt).Seconds())
	if ttl <= 0 {
		ttl = 1
	}

	res, err := createScript.Run(ctx, s.client,
		[]string{s.key(sess.ID), s.userKey(sess.UserID)},
		encoded, ttl, sess.ID.String(),
	).Int()
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res == 0 {
		return ErrSessionExists
	}
	return nil
}

// Get retrieves the session, distinguishing absence from expiry.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}

	sess, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired() {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Touch runs the atomic touch script and returns the refreshed session.
func (s *RedisStore) Touch(ctx context.Context, id uuid.UUID) (*Session, error) {
	res, err := touchScript.Run(ctx, s.client, []string{s.key(id)}, time.Now().Unix()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if raw == "expired" {
		return nil, ErrSessionExpired
	}
	return decodeRecord(raw)
}

// Delete revokes the session and removes it from the user index.
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := deleteScript.Run(ctx, s.client, []string{s.key(id)}, id.String(), s.prefix+":user").Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

// DeleteUserSessions revokes every session of the user, returning the count
// of records that were still live.
func (s *RedisStore) DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := deleteUserScript.Run(ctx, s.client, []string{s.userKey(userID)}, s.prefix).Int()
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return count, nil
}

// Exists agrees with Get: expired or missing records count as absent.
func (s *RedisStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return false, nil
	default:
		return false, err
	}
}

// TTL returns the remaining lifetime derived from the record's expiry field.
func (s *RedisStore) TTL(ctx context.Context, id uuid.UUID) (time.Duration, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return time.Until(sess.ExpiresAt), nil
}

func toRecord(sess *Session) redisSessionRecord {
	rec := redisSessionRecord{
		ID:                 sess.ID.String(),
		UserID:             sess.UserID.String(),
		Email:              sess.Email,
		CreatedAtUnix:      sess.CreatedAt.Unix(),
		LastActiveUnix:     sess.LastActiveAt.Unix(),
		ExpiresAtUnix:      sess.ExpiresAt.Unix(),
		IdleTimeoutSeconds: int64(sess.IdleTimeout.Seconds()),
		Sliding:            sess.SlidingRefresh,
		IPAddress:          sess.IPAddress,
		UserAgent:          sess.UserAgent,
		OAuthProvider:      sess.OAuthProvider,
		LoginRiskScore:     sess.LoginRiskScore,
	}
	if sess.DeviceID != uuid.Nil {
		rec.DeviceID = sess.DeviceID.String()
	}
	return rec
}

func decodeRecord(raw string) (*Session, error) {
	var rec redisSessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: decode session record: %w", ErrStorageFailure, err)
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: session id: %w", ErrStorageFailure, err)
	}
	userID, err := uuid.Parse(rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id: %w", ErrStorageFailure, err)
	}

	deviceID := uuid.Nil
	if rec.DeviceID != "" {
		deviceID, err = uuid.Parse(rec.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: device id: %w", ErrStorageFailure, err)
		}
	}

	return &Session{
		ID:             id,
		UserID:         userID,
		DeviceID:       deviceID,
		Email:          rec.Email,
		CreatedAt:      time.Unix(rec.CreatedAtUnix, 0),
		LastActiveAt:   time.Unix(rec.LastActiveUnix, 0),
		ExpiresAt:      time.Unix(rec.ExpiresAtUnix, 0),
		IdleTimeout:    time.Duration(rec.IdleTimeoutSeconds) * time.Second,
		SlidingRefresh: rec.Sliding,
		IPAddress:      rec.IPAddress,
		UserAgent:      rec.UserAgent,
		OAuthProvider:  rec.OAuthProvider,
		LoginRiskScore: rec.LoginRiskScore,
	}, nil
}

var _ Store = (*RedisStore)(nil)
