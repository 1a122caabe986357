package email

import (
	"context"
	"log/slog"
)

// DevSender logs messages instead of delivering them. The HTML body is
// logged in full so magic links can be clicked straight from the log output.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a logging sender.
func NewDevSender(log *slog.Logger) *DevSender {
	if log == nil {
		log = slog.Default()
	}
	return &DevSender{log: log}
}

func (s *DevSender) SendEmail(ctx context.Context, params SendParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "email captured by dev sender",
		slog.String("to", params.To),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
		slog.String("body_html", params.BodyHTML),
	)
	return nil
}

var _ Sender = (*DevSender)(nil)
