package singleuse

import "errors"

var (
	// ErrTokenNotFound is returned by Consume for every failure mode:
	// the record is absent, already consumed, expired, or the presented
	// secret does not match. The cases are collapsed on purpose.
	ErrTokenNotFound = errors.New("singleuse.token_not_found")

	// ErrChallengeNotFound mirrors ErrTokenNotFound for challenge records.
	ErrChallengeNotFound = errors.New("singleuse.challenge_not_found")

	// ErrTokenIDRequired indicates an empty token ID was supplied.
	ErrTokenIDRequired = errors.New("singleuse.token_id_required")

	// ErrSecretRequired indicates an empty secret was supplied.
	ErrSecretRequired = errors.New("singleuse.secret_required")

	// ErrUserIDRequired indicates an empty user ID was supplied for a challenge.
	ErrUserIDRequired = errors.New("singleuse.user_id_required")

	// ErrStorageFailure wraps backend failures (network, serialization).
	ErrStorageFailure = errors.New("singleuse.storage_failure")
)
