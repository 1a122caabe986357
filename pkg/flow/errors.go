package flow

import "errors"

var (
	// ErrMagicLinkInvalid is the collapsed failure for a magic-link token
	// that is missing, expired or already used. The distinction exists in
	// logs only.
	ErrMagicLinkInvalid = errors.New("flow.magic_link_invalid")

	// ErrOAuthStateInvalid is the collapsed failure for a reused, expired or
	// forged OAuth state value. Security-class: this is the CSRF defense.
	ErrOAuthStateInvalid = errors.New("flow.oauth_state_invalid")

	// ErrOAuthProviderError is returned when the provider signaled an error
	// on the callback; the code is never exchanged in that case.
	ErrOAuthProviderError = errors.New("flow.oauth_provider_error")

	// ErrChallengeInvalid is the collapsed failure for a WebAuthn challenge
	// that is missing, expired or already used.
	ErrChallengeInvalid = errors.New("flow.challenge_invalid")

	// ErrLoginRejected is returned when an assertion verified but the
	// credential counter compare-and-swap failed - a possible cloned
	// authenticator. Security-class.
	ErrLoginRejected = errors.New("flow.login_rejected")

	// ErrStrongerAuthRequired is returned when the assessed risk demands a
	// stronger ceremony than the one the user completed.
	ErrStrongerAuthRequired = errors.New("flow.stronger_auth_required")

	// ErrNoCredentials is returned by passkey authentication when the user
	// has no registered credentials.
	ErrNoCredentials = errors.New("flow.no_credentials")

	ErrEmailRequired    = errors.New("flow.email_required")
	ErrInvalidEmail     = errors.New("flow.invalid_email")
	ErrUserIDRequired   = errors.New("flow.user_id_required")
	ErrUserNotFound     = errors.New("flow.user_not_found")
	ErrEmailDelivery    = errors.New("flow.email_delivery_failed")
	ErrProviderRequired = errors.New("flow.provider_required")
)
