package passkey

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// createScript inserts the credential and indexes it under its user in one
// atomic step. Returns 0 when the ID is already taken.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[2])
return 1
`)

// updateCounterScript is the counter compare-and-swap. The compare and the
// write happen server-side in one script, so two racing callers with the same
// expected value cannot both win. Returns -1 missing, 0 conflict, 1 success.
var updateCounterScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return -1
end
local rec = cjson.decode(raw)
if tonumber(rec.counter) ~= tonumber(ARGV[1]) then
	return 0
end
rec.counter = tonumber(ARGV[2])
rec.last_used_unix = tonumber(ARGV[3])
redis.call('SET', KEYS[1], cjson.encode(rec))
return 1
`)

var touchScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return 0
end
local rec = cjson.decode(raw)
rec.last_used_unix = tonumber(ARGV[1])
redis.call('SET', KEYS[1], cjson.encode(rec))
return 1
`)

// deleteScript removes the credential and its user-index entry together.
var deleteScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return 0
end
local rec = cjson.decode(raw)
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2] .. rec.user_id, ARGV[1])
return 1
`)

// redisCredentialRecord is the persisted form. Times are unix seconds so the
// Lua scripts can update them without date handling.
type redisCredentialRecord struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	DeviceID      string `json:"device_id"`
	PublicKey     []byte `json:"public_key"`
	Counter       uint32 `json:"counter"`
	CreatedAtUnix int64  `json:"created_at_unix"`
	LastUsedUnix  int64  `json:"last_used_unix"`
}

func newRedisCredentialRecord(cred Credential) redisCredentialRecord {
	rec := redisCredentialRecord{
		ID:            cred.ID,
		UserID:        cred.UserID.String(),
		DeviceID:      cred.DeviceID.String(),
		PublicKey:     cred.PublicKey,
		Counter:       cred.Counter,
		CreatedAtUnix: cred.CreatedAt.Unix(),
	}
	if !cred.LastUsedAt.IsZero() {
		rec.LastUsedUnix = cred.LastUsedAt.Unix()
	}
	return rec
}

func (r redisCredentialRecord) credential() (Credential, error) {
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return Credential{}, err
	}
	deviceID, err := uuid.Parse(r.DeviceID)
	if err != nil {
		return Credential{}, err
	}

	cred := Credential{
		ID:        r.ID,
		UserID:    userID,
		DeviceID:  deviceID,
		PublicKey: r.PublicKey,
		Counter:   r.Counter,
		CreatedAt: time.Unix(r.CreatedAtUnix, 0).UTC(),
	}
	if r.LastUsedUnix > 0 {
		cred.LastUsedAt = time.Unix(r.LastUsedUnix, 0).UTC()
	}
	return cred, nil
}

// RedisCredentialStore implements CredentialStore on Redis.
type RedisCredentialStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisCredentialStoreOption configures a RedisCredentialStore.
type RedisCredentialStoreOption func(*RedisCredentialStore)

// WithRedisKeyPrefix overrides the default "authkit:passkey" key prefix.
func WithRedisKeyPrefix(prefix string) RedisCredentialStoreOption {
	return func(s *RedisCredentialStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisCredentialStore creates a Redis-backed credential store.
func NewRedisCredentialStore(client redis.UniversalClient, opts ...RedisCredentialStoreOption) *RedisCredentialStore {
	s := &RedisCredentialStore{
		client: client,
		prefix: "authkit:passkey",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisCredentialStore) credKey(id string) string {
	return s.prefix + ":credential:" + id
}

func (s *RedisCredentialStore) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

func (s *RedisCredentialStore) Create(ctx context.Context, cred Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(newRedisCredentialRecord(cred))
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}

	res, err := createScript.Run(ctx, s.client,
		[]string{s.credKey(cred.ID), s.userKey(cred.UserID.String())},
		raw, cred.ID,
	).Int()
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res == 0 {
		return ErrCredentialExists
	}
	return nil
}

func (s *RedisCredentialStore) Get(ctx context.Context, id string) (*Credential, error) {
	if id == "" {
		return nil, ErrCredentialIDRequired
	}

	raw, err := s.client.Get(ctx, s.credKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCredentialNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}

	var rec redisCredentialRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	cred, err := rec.credential()
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &cred, nil
}

func (s *RedisCredentialStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Credential, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDRequired
	}

	ids, err := s.client.SMembers(ctx, s.userKey(userID.String())).Result()
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]Credential, 0, len(ids))
	for _, id := range ids {
		cred, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrCredentialNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *cred)
	}
	return out, nil
}

func (s *RedisCredentialStore) UpdateCounter(ctx context.Context, id string, old, new uint32) error {
	if id == "" {
		return ErrCredentialIDRequired
	}
	if new < old {
		return ErrCounterConflict
	}

	res, err := updateCounterScript.Run(ctx, s.client,
		[]string{s.credKey(id)},
		old, new, time.Now().Unix(),
	).Int()
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}

	switch res {
	case -1:
		return ErrCredentialNotFound
	case 0:
		return ErrCounterConflict
	default:
		return nil
	}
}

func (s *RedisCredentialStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return ErrCredentialIDRequired
	}

	res, err := touchScript.Run(ctx, s.client, []string{s.credKey(id)}, at.Unix()).Int()
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if res == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (s *RedisCredentialStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrCredentialIDRequired
	}

	if err := deleteScript.Run(ctx, s.client,
		[]string{s.credKey(id), s.prefix + ":user:"},
		id,
	).Err(); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

var _ CredentialStore = (*RedisCredentialStore)(nil)
