package flow_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authkit/pkg/email"
	"github.com/dmitrymomot/authkit/pkg/flow"
	"github.com/dmitrymomot/authkit/pkg/oauth"
	"github.com/dmitrymomot/authkit/pkg/passkey"
	"github.com/dmitrymomot/authkit/pkg/risk"
)

type captureSender struct {
	mu   sync.Mutex
	sent []email.SendParams
	err  error
}

func (s *captureSender) SendEmail(ctx context.Context, params email.SendParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func (s *captureSender) last(t *testing.T) email.SendParams {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

type captureEmitter struct {
	mu     sync.Mutex
	events []flow.Event
	err    error
}

func (e *captureEmitter) Emit(ctx context.Context, event flow.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *captureEmitter) ofType(eventType string) []flow.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []flow.Event
	for _, ev := range e.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]flow.User
}

func newMemUserRepo(users ...flow.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[uuid.UUID]flow.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*flow.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, flow.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, addr string) (*flow.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == addr {
			u := u
			return &u, nil
		}
	}
	return nil, flow.ErrUserNotFound
}

type memDeviceRepo struct {
	devices []flow.Device
}

func (r *memDeviceRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]flow.Device, error) {
	var out []flow.Device
	for _, d := range r.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDeviceRepo) FindByUserAndAgent(ctx context.Context, userID uuid.UUID, userAgent string) (*flow.Device, error) {
	for _, d := range r.devices {
		if d.UserID == userID && d.UserAgent == userAgent {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

type stubRisk struct {
	assessment risk.Assessment
	err        error
}

func (s *stubRisk) Calculate(ctx context.Context, login risk.LoginContext) (risk.Assessment, error) {
	if s.err != nil {
		return risk.Assessment{}, s.err
	}
	return s.assessment, nil
}

type stubProvider struct {
	id          string
	authURL     string
	exchangeErr error
	infoErr     error
	info        oauth.UserInfo

	mu        sync.Mutex
	exchanged []string
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) AuthCodeURL(state string) string {
	return p.authURL + "?state=" + state
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	p.mu.Lock()
	p.exchanged = append(p.exchanged, code)
	p.mu.Unlock()
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "at-" + code}, nil
}

func (p *stubProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (oauth.UserInfo, error) {
	if p.infoErr != nil {
		return oauth.UserInfo{}, p.infoErr
	}
	return p.info, nil
}

type stubVerifier struct {
	registration *passkey.RegistrationResult
	assertion    *passkey.AssertionResult
	err          error

	mu              sync.Mutex
	seenChallenges  []string
	seenCredentials [][]passkey.Credential
}

func (v *stubVerifier) VerifyRegistration(userID uuid.UUID, addr, challenge string, response []byte) (*passkey.RegistrationResult, error) {
	v.mu.Lock()
	v.seenChallenges = append(v.seenChallenges, challenge)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.registration, nil
}

func (v *stubVerifier) VerifyAssertion(userID uuid.UUID, addr, challenge string, credentials []passkey.Credential, response []byte) (*passkey.AssertionResult, error) {
	v.mu.Lock()
	v.seenChallenges = append(v.seenChallenges, challenge)
	v.seenCredentials = append(v.seenCredentials, credentials)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.assertion, nil
}

// clientResponse builds the minimal WebAuthn response envelope the flows
// parse the challenge out of.
func clientResponse(t *testing.T, challenge string) []byte {
	t.Helper()

	clientData, err := json.Marshal(map[string]string{"challenge": challenge})
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"response": map[string]string{
			"clientDataJSON": base64.RawURLEncoding.EncodeToString(clientData),
		},
	})
	require.NoError(t, err)
	return payload
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
