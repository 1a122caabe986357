package risk

import "errors"

var (
	ErrInvalidIP      = errors.New("risk.invalid_ip")
	ErrLookupFailed   = errors.New("risk.lookup_failed")
	ErrInvalidConfig  = errors.New("risk.invalid_config")
	ErrEmailRequired  = errors.New("risk.email_required")
	ErrUnexpectedBody = errors.New("risk.unexpected_body")
)
