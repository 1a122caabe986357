package passkey

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCredentialStore implements CredentialStore in process memory. A
// single mutex serializes the counter compare-and-swap.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	creds  map[string]*Credential
	byUser map[uuid.UUID]map[string]struct{}
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		creds:  make(map[string]*Credential),
		byUser: make(map[uuid.UUID]map[string]struct{}),
	}
}

func (s *MemoryCredentialStore) Create(ctx context.Context, cred Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creds[cred.ID]; ok {
		return ErrCredentialExists
	}

	stored := cred
	s.creds[cred.ID] = &stored
	if s.byUser[cred.UserID] == nil {
		s.byUser[cred.UserID] = make(map[string]struct{})
	}
	s.byUser[cred.UserID][cred.ID] = struct{}{}
	return nil
}

func (s *MemoryCredentialStore) Get(ctx context.Context, id string) (*Credential, error) {
	if id == "" {
		return nil, ErrCredentialIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[id]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	out := *cred
	return &out, nil
}

func (s *MemoryCredentialStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Credential, error) {
	if userID == uuid.Nil {
		return nil, ErrUserIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]Credential, 0, len(ids))
	for id := range ids {
		if cred, ok := s.creds[id]; ok {
			out = append(out, *cred)
		}
	}
	return out, nil
}

func (s *MemoryCredentialStore) UpdateCounter(ctx context.Context, id string, old, new uint32) error {
	if id == "" {
		return ErrCredentialIDRequired
	}
	if new < old {
		return ErrCounterConflict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return ErrCredentialNotFound
	}
	if cred.Counter != old {
		return ErrCounterConflict
	}

	cred.Counter = new
	cred.LastUsedAt = time.Now()
	return nil
}

func (s *MemoryCredentialStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return ErrCredentialIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return ErrCredentialNotFound
	}
	cred.LastUsedAt = at
	return nil
}

func (s *MemoryCredentialStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrCredentialIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[id]
	if !ok {
		return nil
	}

	delete(s.creds, id)
	if ids := s.byUser[cred.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, cred.UserID)
		}
	}
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
