package projection

import "errors"

var (
	// ErrUnknownEventType is returned by Apply for event types the
	// projection does not materialize.
	ErrUnknownEventType = errors.New("projection.unknown_event_type")

	// ErrInvalidPayload indicates an event payload missing required fields
	// or carrying malformed identifiers.
	ErrInvalidPayload = errors.New("projection.invalid_payload")

	// ErrStorageFailure wraps database errors.
	ErrStorageFailure = errors.New("projection.storage_failure")
)
