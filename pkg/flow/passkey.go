package flow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/passkey"
	"github.com/dmitrymomot/authkit/pkg/risk"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/singleuse"
)

// PasskeyConfig holds WebAuthn ceremony settings.
type PasskeyConfig struct {
	ChallengeTTL       time.Duration `env:"PASSKEY_CHALLENGE_TTL" envDefault:"5m"`
	SessionTTL         time.Duration `env:"PASSKEY_SESSION_TTL" envDefault:"720h"`
	SessionIdleTimeout time.Duration `env:"PASSKEY_SESSION_IDLE_TIMEOUT" envDefault:"24h"`
}

// RegistrationBegin asks for a registration challenge for a logged-in user.
type RegistrationBegin struct {
	UserID uuid.UUID
}

// PasskeyChallengeIssued carries a stored single-use challenge.
type PasskeyChallengeIssued struct {
	Challenge string
	ExpiresAt time.Time
}

// RegistrationComplete finishes registration with the authenticator's
// attestation response, as produced by navigator.credentials.create.
type RegistrationComplete struct {
	UserID      uuid.UUID
	DeviceID    uuid.UUID
	Attestation []byte
}

// PasskeyRegistered reports the stored credential.
type PasskeyRegistered struct {
	CredentialID string
}

// AuthenticationBegin asks for an assertion challenge.
type AuthenticationBegin struct {
	UserID uuid.UUID
}

// PasskeyAssertionOptions carries the challenge and the credential IDs the
// client may answer with.
type PasskeyAssertionOptions struct {
	Challenge     string
	CredentialIDs []string
	ExpiresAt     time.Time
}

// AuthenticationComplete finishes login with the authenticator's assertion
// response, as produced by navigator.credentials.get.
type AuthenticationComplete struct {
	UserID    uuid.UUID
	IP        string
	UserAgent string
	Assertion []byte
}

// PasskeyFlow drives WebAuthn registration and authentication. The challenge
// embedded in the client response is consumed before verification so the
// single-use guarantee holds even when verification fails afterwards.
type PasskeyFlow struct {
	core
	cfg         PasskeyConfig
	challenges  singleuse.ChallengeStore
	credentials passkey.CredentialStore
	verifier    passkey.Verifier
}

func NewPasskeyFlow(cfg PasskeyConfig, challenges singleuse.ChallengeStore, credentials passkey.CredentialStore, verifier passkey.Verifier, sessions session.Store, opts ...Option) *PasskeyFlow {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}

	return &PasskeyFlow{
		core:        newCore(sessions, opts),
		cfg:         cfg,
		challenges:  challenges,
		credentials: credentials,
		verifier:    verifier,
	}
}

// BeginRegistration issues a challenge for adding a passkey to an account.
func (f *PasskeyFlow) BeginRegistration(ctx context.Context, cmd RegistrationBegin) (*PasskeyChallengeIssued, error) {
	if cmd.UserID == uuid.Nil {
		return nil, ErrUserIDRequired
	}
	return f.issueChallenge(ctx, cmd.UserID)
}

// CompleteRegistration consumes the challenge, verifies the attestation and
// stores the new credential.
func (f *PasskeyFlow) CompleteRegistration(ctx context.Context, cmd RegistrationComplete) (*PasskeyRegistered, error) {
	if cmd.UserID == uuid.Nil {
		return nil, ErrUserIDRequired
	}

	challenge, err := f.consumeChallenge(ctx, cmd.UserID, cmd.Attestation)
	if err != nil {
		return nil, err
	}

	email, _, _, _ := f.userByID(ctx, cmd.UserID)

	result, err := f.verifier.VerifyRegistration(cmd.UserID, email, challenge, cmd.Attestation)
	if err != nil {
		f.logVerifyFailure(ctx, "passkey registration rejected", cmd.UserID, err)
		return nil, err
	}

	deviceID := cmd.DeviceID
	if deviceID == uuid.Nil {
		deviceID = uuid.New()
	}

	err = f.credentials.Create(ctx, passkey.Credential{
		ID:        result.CredentialID,
		UserID:    cmd.UserID,
		DeviceID:  deviceID,
		PublicKey: result.PublicKey,
		Counter:   result.Counter,
		CreatedAt: f.now(),
	})
	if err != nil {
		return nil, err
	}

	f.log.InfoContext(ctx, "passkey registered",
		logger.Flow("passkey"),
		logger.UserID(cmd.UserID),
		logger.Event("passkey.registered"),
	)

	return &PasskeyRegistered{CredentialID: result.CredentialID}, nil
}

// BeginAuthentication issues an assertion challenge. Users without
// credentials fail with ErrNoCredentials before any challenge is stored.
func (f *PasskeyFlow) BeginAuthentication(ctx context.Context, cmd AuthenticationBegin) (*PasskeyAssertionOptions, error) {
	if cmd.UserID == uuid.Nil {
		return nil, ErrUserIDRequired
	}

	creds, err := f.credentials.ListByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	issued, err := f.issueChallenge(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(creds))
	for i, cred := range creds {
		ids[i] = cred.ID
	}
	return &PasskeyAssertionOptions{
		Challenge:     issued.Challenge,
		CredentialIDs: ids,
		ExpiresAt:     issued.ExpiresAt,
	}, nil
}

// CompleteAuthentication consumes the challenge, verifies the assertion,
// advances the signature counter and creates the session. A counter
// compare-and-swap failure rejects the login even though the signature
// verified: either a cloned authenticator or a concurrent replay.
func (f *PasskeyFlow) CompleteAuthentication(ctx context.Context, cmd AuthenticationComplete) (*SessionCreated, error) {
	if cmd.UserID == uuid.Nil {
		return nil, ErrUserIDRequired
	}

	challenge, err := f.consumeChallenge(ctx, cmd.UserID, cmd.Assertion)
	if err != nil {
		return nil, err
	}

	creds, err := f.credentials.ListByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	email, prevIP, prevAt, _ := f.userByID(ctx, cmd.UserID)

	result, err := f.verifier.VerifyAssertion(cmd.UserID, email, challenge, creds, cmd.Assertion)
	if err != nil {
		f.logVerifyFailure(ctx, "passkey assertion rejected", cmd.UserID, err)
		return nil, err
	}

	var used *passkey.Credential
	for i := range creds {
		if creds[i].ID == result.CredentialID {
			used = &creds[i]
			break
		}
	}
	if used == nil {
		f.log.WarnContext(ctx, "assertion for unknown credential",
			logger.Flow("passkey"),
			logger.UserID(cmd.UserID),
			logger.Security(),
		)
		return nil, ErrLoginRejected
	}

	if err := f.credentials.UpdateCounter(ctx, used.ID, used.Counter, result.NewCounter); err != nil {
		if errors.Is(err, passkey.ErrCounterConflict) {
			f.log.WarnContext(ctx, "signature counter conflict, possible cloned authenticator",
				logger.Flow("passkey"),
				logger.UserID(cmd.UserID),
				logger.Security(),
			)
			return nil, ErrLoginRejected
		}
		return nil, err
	}

	return f.finishLogin(ctx, loginParams{
		flowName:    "passkey",
		strength:    risk.AuthLevelHardwareBacked,
		userID:      cmd.UserID,
		email:       email,
		ip:          cmd.IP,
		userAgent:   cmd.UserAgent,
		sessionTTL:  f.cfg.SessionTTL,
		idleTimeout: f.cfg.SessionIdleTimeout,
		sliding:     f.cfg.SessionIdleTimeout > 0,
		prevIP:      prevIP,
		prevAt:      prevAt,
	})
}

func (f *PasskeyFlow) issueChallenge(ctx context.Context, userID uuid.UUID) (*PasskeyChallengeIssued, error) {
	challenge, err := singleuse.NewSecret()
	if err != nil {
		return nil, err
	}

	now := f.now()
	expiresAt := now.Add(f.cfg.ChallengeTTL)
	err = f.challenges.Store(ctx, singleuse.ChallengeData{
		UserID:    userID,
		Challenge: challenge,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &PasskeyChallengeIssued{Challenge: challenge, ExpiresAt: expiresAt}, nil
}

// consumeChallenge extracts the challenge echoed in the client response and
// consumes the stored record. Malformed responses and unknown, expired or
// replayed challenges all collapse into ErrChallengeInvalid.
func (f *PasskeyFlow) consumeChallenge(ctx context.Context, userID uuid.UUID, response []byte) (string, error) {
	challenge, err := passkey.ChallengeFromResponse(response)
	if err != nil {
		return "", ErrChallengeInvalid
	}

	if _, err := f.challenges.Consume(ctx, userID, challenge); err != nil {
		if errors.Is(err, singleuse.ErrChallengeNotFound) {
			return "", ErrChallengeInvalid
		}
		return "", err
	}
	return challenge, nil
}

func (f *PasskeyFlow) userByID(ctx context.Context, userID uuid.UUID) (email, prevIP string, prevAt time.Time, known bool) {
	if f.users == nil {
		return "", "", time.Time{}, false
	}
	user, err := f.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return "", "", time.Time{}, false
	}
	return user.Email, user.LastLoginIP, user.LastLoginAt, true
}

func (f *PasskeyFlow) logVerifyFailure(ctx context.Context, msg string, userID uuid.UUID, err error) {
	attrs := []any{
		logger.Flow("passkey"),
		logger.UserID(userID),
		logger.Error(err),
	}
	if errors.Is(err, passkey.ErrOriginMismatch) || errors.Is(err, passkey.ErrRPIDMismatch) {
		attrs = append(attrs, logger.Security())
	}
	f.log.WarnContext(ctx, msg, attrs...)
}
