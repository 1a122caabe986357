package email

import (
	"context"
	"fmt"
	"regexp"
)

// emailRegex is intentionally permissive; real validation happens when the
// provider accepts or bounces the address.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// SendParams describes one outbound message.
type SendParams struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

// Validate checks the fields every sender needs.
func (p SendParams) Validate() error {
	if p.To == "" || !emailRegex.MatchString(p.To) {
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidParams)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// Sender delivers authentication emails.
type Sender interface {
	SendEmail(ctx context.Context, params SendParams) error
}
