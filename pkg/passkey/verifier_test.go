package passkey_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/passkey"
)

func TestNewWebAuthnVerifier(t *testing.T) {
	t.Parallel()

	t.Run("requires rp id", func(t *testing.T) {
		t.Parallel()
		_, err := passkey.NewWebAuthnVerifier(passkey.Config{Origins: []string{"https://example.com"}})
		assert.ErrorIs(t, err, passkey.ErrRPIDRequired)
	})

	t.Run("requires origins", func(t *testing.T) {
		t.Parallel()
		_, err := passkey.NewWebAuthnVerifier(passkey.Config{RPID: "example.com"})
		assert.ErrorIs(t, err, passkey.ErrOriginRequired)
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		v, err := passkey.NewWebAuthnVerifier(passkey.Config{
			RPID:    "example.com",
			Origins: []string{"https://example.com"},
		})
		require.NoError(t, err)
		assert.NotNil(t, v)
	})
}

func clientResponse(t *testing.T, clientData map[string]string) []byte {
	t.Helper()

	raw, err := json.Marshal(clientData)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"response": map[string]string{
			"clientDataJSON": base64.RawURLEncoding.EncodeToString(raw),
		},
	})
	require.NoError(t, err)
	return payload
}

func TestChallengeFromResponse(t *testing.T) {
	t.Parallel()

	t.Run("extracts challenge", func(t *testing.T) {
		t.Parallel()

		payload := clientResponse(t, map[string]string{
			"type":      "webauthn.create",
			"challenge": "dGVzdC1jaGFsbGVuZ2U",
			"origin":    "https://example.com",
		})

		challenge, err := passkey.ChallengeFromResponse(payload)
		require.NoError(t, err)
		assert.Equal(t, "dGVzdC1jaGFsbGVuZ2U", challenge)
	})

	t.Run("not json", func(t *testing.T) {
		t.Parallel()
		_, err := passkey.ChallengeFromResponse([]byte("not-json"))
		assert.ErrorIs(t, err, passkey.ErrInvalidResponse)
	})

	t.Run("missing client data", func(t *testing.T) {
		t.Parallel()
		_, err := passkey.ChallengeFromResponse([]byte(`{"response":{}}`))
		assert.ErrorIs(t, err, passkey.ErrInvalidResponse)
	})

	t.Run("missing challenge", func(t *testing.T) {
		t.Parallel()

		payload := clientResponse(t, map[string]string{"type": "webauthn.create"})
		_, err := passkey.ChallengeFromResponse(payload)
		assert.ErrorIs(t, err, passkey.ErrInvalidResponse)
	})

	t.Run("client data not base64", func(t *testing.T) {
		t.Parallel()

		_, err := passkey.ChallengeFromResponse([]byte(`{"response":{"clientDataJSON":"!!!"}}`))
		assert.ErrorIs(t, err, passkey.ErrInvalidResponse)
	})
}
