package singleuse

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

type challengeRecord struct {
	data   ChallengeData
	digest [sha256.Size]byte
}

// MemoryChallengeStore implements ChallengeStore in-process. Records are keyed
// by (user ID, challenge digest) because WebAuthn supplies no separate ID.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]challengeRecord
}

// NewMemoryChallengeStore creates an in-memory challenge store. Expired
// entries are purged opportunistically on access instead of by a background
// goroutine; challenge TTLs are short enough that this bounds storage.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]challengeRecord),
	}
}

func challengeKey(userID uuid.UUID, challenge string) string {
	d := digest(challenge)
	return userID.String() + ":" + hex.EncodeToString(d[:])
}

// Store inserts the challenge record, keeping only the challenge digest.
func (s *MemoryChallengeStore) Store(ctx context.Context, data ChallengeData) error {
	if data.UserID == uuid.Nil {
		return ErrUserIDRequired
	}
	if data.Challenge == "" {
		return ErrSecretRequired
	}

	rec := challengeRecord{data: data, digest: digest(data.Challenge)}
	rec.data.Challenge = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())
	s.challenges[challengeKey(data.UserID, data.Challenge)] = rec
	return nil
}

// Consume follows the same single-use contract as MemoryTokenStore.Consume.
func (s *MemoryChallengeStore) Consume(ctx context.Context, userID uuid.UUID, challenge string) (*ChallengeData, error) {
	if userID == uuid.Nil || challenge == "" {
		return nil, ErrChallengeNotFound
	}

	key := challengeKey(userID, challenge)
	presentedDigest := digest(challenge)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.challenges[key]
	if !ok {
		var zero [sha256.Size]byte
		subtle.ConstantTimeCompare(presentedDigest[:], zero[:])
		return nil, ErrChallengeNotFound
	}

	matched := subtle.ConstantTimeCompare(presentedDigest[:], rec.digest[:]) == 1
	expired := now.After(rec.data.ExpiresAt)

	if expired {
		delete(s.challenges, key)
	}
	if !matched || expired {
		return nil, ErrChallengeNotFound
	}

	delete(s.challenges, key)

	data := rec.data
	data.Challenge = challenge
	return &data, nil
}

// Exists treats expired records as absent.
func (s *MemoryChallengeStore) Exists(ctx context.Context, userID uuid.UUID, challenge string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.challenges[challengeKey(userID, challenge)]
	if !ok {
		return false, nil
	}
	if time.Now().After(rec.data.ExpiresAt) {
		delete(s.challenges, challengeKey(userID, challenge))
		return false, nil
	}
	return true, nil
}

// Delete removes the record. Missing records are not an error.
func (s *MemoryChallengeStore) Delete(ctx context.Context, userID uuid.UUID, challenge string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, challengeKey(userID, challenge))
	return nil
}

func (s *MemoryChallengeStore) purgeExpiredLocked(now time.Time) {
	for key, rec := range s.challenges {
		if now.After(rec.data.ExpiresAt) {
			delete(s.challenges, key)
		}
	}
}

var _ ChallengeStore = (*MemoryChallengeStore)(nil)
