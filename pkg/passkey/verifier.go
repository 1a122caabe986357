package passkey

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// RegistrationResult is the outcome of a verified attestation.
type RegistrationResult struct {
	CredentialID string
	PublicKey    []byte
	Counter      uint32
}

// AssertionResult is the outcome of a verified assertion. NewCounter is the
// authenticator's claimed signature counter; the caller must advance the
// stored counter via CredentialStore.UpdateCounter before trusting the login.
type AssertionResult struct {
	CredentialID string
	NewCounter   uint32
}

// Verifier checks attestation and assertion responses against the expected
// origin and relying-party ID. Implementations never touch storage; the
// caller consumes the challenge and persists the credential.
type Verifier interface {
	VerifyRegistration(userID uuid.UUID, email, challenge string, response []byte) (*RegistrationResult, error)
	VerifyAssertion(userID uuid.UUID, email, challenge string, credentials []Credential, response []byte) (*AssertionResult, error)
}

// Config identifies the relying party.
type Config struct {
	RPID          string   `env:"PASSKEY_RP_ID"`
	RPDisplayName string   `env:"PASSKEY_RP_DISPLAY_NAME"`
	Origins       []string `env:"PASSKEY_ORIGINS" envSeparator:","`
}

// WebAuthnVerifier implements Verifier on github.com/go-webauthn/webauthn.
// Origin and RP ID are pre-checked so mismatches surface as ErrOriginMismatch
// and ErrRPIDMismatch instead of the library's generic verification error.
type WebAuthnVerifier struct {
	web      *webauthn.WebAuthn
	origins  map[string]struct{}
	rpIDHash [sha256.Size]byte
}

// NewWebAuthnVerifier creates a verifier for the given relying party.
func NewWebAuthnVerifier(cfg Config) (*WebAuthnVerifier, error) {
	if cfg.RPID == "" {
		return nil, ErrRPIDRequired
	}
	if len(cfg.Origins) == 0 {
		return nil, ErrOriginRequired
	}

	name := cfg.RPDisplayName
	if name == "" {
		name = cfg.RPID
	}

	web, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: name,
		RPOrigins:     cfg.Origins,
	})
	if err != nil {
		return nil, err
	}

	origins := make(map[string]struct{}, len(cfg.Origins))
	for _, origin := range cfg.Origins {
		origins[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return &WebAuthnVerifier{
		web:      web,
		origins:  origins,
		rpIDHash: sha256.Sum256([]byte(cfg.RPID)),
	}, nil
}

func (v *WebAuthnVerifier) VerifyRegistration(userID uuid.UUID, email, challenge string, response []byte) (*RegistrationResult, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}

	if err := v.checkOrigin(parsed.Response.CollectedClientData.Origin); err != nil {
		return nil, err
	}
	if err := v.checkRPIDHash(parsed.Response.AttestationObject.AuthData.RPIDHash); err != nil {
		return nil, err
	}

	user := &ceremonyUser{id: userID, email: email}
	session := webauthn.SessionData{
		Challenge: challenge,
		UserID:    user.WebAuthnID(),
	}

	cred, err := v.web.CreateCredential(user, session, parsed)
	if err != nil {
		return nil, errors.Join(ErrVerificationFailed, err)
	}

	return &RegistrationResult{
		CredentialID: base64.RawURLEncoding.EncodeToString(cred.ID),
		PublicKey:    cred.PublicKey,
		Counter:      cred.Authenticator.SignCount,
	}, nil
}

func (v *WebAuthnVerifier) VerifyAssertion(userID uuid.UUID, email, challenge string, credentials []Credential, response []byte) (*AssertionResult, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}

	if err := v.checkOrigin(parsed.Response.CollectedClientData.Origin); err != nil {
		return nil, err
	}
	if err := v.checkRPIDHash(parsed.Response.AuthenticatorData.RPIDHash); err != nil {
		return nil, err
	}

	webCreds, err := toWebAuthnCredentials(credentials)
	if err != nil {
		return nil, err
	}
	user := &ceremonyUser{id: userID, email: email, credentials: webCreds}
	session := webauthn.SessionData{
		Challenge: challenge,
		UserID:    user.WebAuthnID(),
	}

	cred, err := v.web.ValidateLogin(user, session, parsed)
	if err != nil {
		return nil, errors.Join(ErrVerificationFailed, err)
	}

	return &AssertionResult{
		CredentialID: base64.RawURLEncoding.EncodeToString(cred.ID),
		NewCounter:   cred.Authenticator.SignCount,
	}, nil
}

func (v *WebAuthnVerifier) checkOrigin(origin string) error {
	if _, ok := v.origins[strings.TrimSuffix(origin, "/")]; !ok {
		return ErrOriginMismatch
	}
	return nil
}

func (v *WebAuthnVerifier) checkRPIDHash(hash []byte) error {
	if !bytes.Equal(hash, v.rpIDHash[:]) {
		return ErrRPIDMismatch
	}
	return nil
}

// ceremonyUser adapts our identity model to webauthn.User for the duration
// of one verification call.
type ceremonyUser struct {
	id          uuid.UUID
	email       string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return u.id[:] }
func (u *ceremonyUser) WebAuthnName() string                       { return u.email }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.email }
func (u *ceremonyUser) WebAuthnIcon() string                       { return "" }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func toWebAuthnCredentials(credentials []Credential) ([]webauthn.Credential, error) {
	if len(credentials) == 0 {
		return nil, nil
	}
	out := make([]webauthn.Credential, 0, len(credentials))
	for _, cred := range credentials {
		id, err := base64.RawURLEncoding.DecodeString(cred.ID)
		if err != nil {
			return nil, errors.Join(ErrInvalidResponse, err)
		}
		out = append(out, webauthn.Credential{
			ID:        id,
			PublicKey: cred.PublicKey,
			Authenticator: webauthn.Authenticator{
				SignCount: cred.Counter,
			},
		})
	}
	return out, nil
}

// ChallengeFromResponse extracts the challenge embedded in a client response
// without running full verification. Flows use it to locate and consume the
// stored challenge before handing the response to the Verifier; consuming
// first keeps the single-use guarantee even when verification fails later.
func ChallengeFromResponse(response []byte) (string, error) {
	var envelope struct {
		Response struct {
			ClientDataJSON string `json:"clientDataJSON"`
		} `json:"response"`
	}
	if err := json.Unmarshal(response, &envelope); err != nil {
		return "", errors.Join(ErrInvalidResponse, err)
	}
	if envelope.Response.ClientDataJSON == "" {
		return "", ErrInvalidResponse
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(envelope.Response.ClientDataJSON, "="))
	if err != nil {
		return "", errors.Join(ErrInvalidResponse, err)
	}

	var clientData struct {
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(raw, &clientData); err != nil {
		return "", errors.Join(ErrInvalidResponse, err)
	}
	if clientData.Challenge == "" {
		return "", ErrInvalidResponse
	}
	return clientData.Challenge, nil
}

var _ Verifier = (*WebAuthnVerifier)(nil)
