package email

import (
	"fmt"
	"html/template"
	"strings"
)

const magicLinkTag = "magic-link"

var magicLinkTmpl = template.Must(template.New("magic_link").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
	<h2>Sign in to {{.AppName}}</h2>
	<p>Click the button below to sign in. This link can be used once and expires in {{.ExpiresIn}}.</p>
	<p style="margin: 32px 0;">
		<a href="{{.Link}}" style="background: #111; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Sign in</a>
	</p>
	<p style="color: #666; font-size: 13px;">If the button does not work, copy this URL into your browser:<br>{{.Link}}</p>
	<p style="color: #666; font-size: 13px;">If you did not request this email you can safely ignore it.</p>
</body>
</html>`))

// MagicLinkParams fills the magic-link template.
type MagicLinkParams struct {
	AppName   string
	Link      string
	ExpiresIn string
}

// NewMagicLinkEmail renders the sign-in email for the given recipient.
func NewMagicLinkEmail(to string, params MagicLinkParams) (SendParams, error) {
	if params.AppName == "" {
		return SendParams{}, fmt.Errorf("%w: AppName is required", ErrInvalidParams)
	}
	if params.Link == "" {
		return SendParams{}, fmt.Errorf("%w: Link is required", ErrInvalidParams)
	}

	var body strings.Builder
	if err := magicLinkTmpl.Execute(&body, params); err != nil {
		return SendParams{}, fmt.Errorf("%w: render template: %v", ErrInvalidParams, err)
	}

	return SendParams{
		To:       to,
		Subject:  fmt.Sprintf("Sign in to %s", params.AppName),
		BodyHTML: body.String(),
		Tag:      magicLinkTag,
	}, nil
}
