package passkey

import "errors"

var (
	// ErrCredentialNotFound is returned when no credential exists for the ID.
	ErrCredentialNotFound = errors.New("passkey.credential_not_found")

	// ErrCredentialExists is returned by Create when the ID is already taken.
	ErrCredentialExists = errors.New("passkey.credential_exists")

	// ErrCounterConflict is returned by UpdateCounter when the stored counter
	// no longer equals the expected value. Logins must treat it as fatal even
	// when the assertion signature verified.
	ErrCounterConflict = errors.New("passkey.counter_conflict")

	// ErrOriginMismatch is returned when a client response was produced for a
	// different origin. Security-class: audit it, never detail it to clients.
	ErrOriginMismatch = errors.New("passkey.origin_mismatch")

	// ErrRPIDMismatch is returned when the authenticator data was signed over
	// a different relying-party ID. Security-class, same as ErrOriginMismatch.
	ErrRPIDMismatch = errors.New("passkey.rpid_mismatch")

	// ErrVerificationFailed wraps any other attestation/assertion rejection.
	ErrVerificationFailed = errors.New("passkey.verification_failed")

	// ErrInvalidResponse is returned when a client response cannot be parsed.
	ErrInvalidResponse = errors.New("passkey.invalid_response")

	ErrCredentialIDRequired = errors.New("passkey.credential_id_required")
	ErrUserIDRequired       = errors.New("passkey.user_id_required")
	ErrRPIDRequired         = errors.New("passkey.rp_id_required")
	ErrOriginRequired       = errors.New("passkey.origin_required")
	ErrStorageFailure       = errors.New("passkey.storage_failure")
)
