package oauth

import "errors"

var (
	// ErrInvalidCode is returned when the authorization code exchange fails.
	// Exchange failures collapse into this one error so callers cannot probe
	// provider internals through us.
	ErrInvalidCode = errors.New("oauth.invalid_code")

	// ErrNoVerifiedEmail is returned when the provider account has no email
	// address we are willing to trust.
	ErrNoVerifiedEmail = errors.New("oauth.no_verified_email")

	// ErrUnknownProvider is returned by Registry.Get for an unconfigured ID.
	ErrUnknownProvider = errors.New("oauth.unknown_provider")

	ErrInvalidConfig   = errors.New("oauth.invalid_config")
	ErrProviderFailure = errors.New("oauth.provider_failure")
)
