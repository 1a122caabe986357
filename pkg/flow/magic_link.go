package flow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrymomot/authkit/pkg/email"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/risk"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/singleuse"
)

// MagicLinkConfig holds magic-link ceremony settings.
type MagicLinkConfig struct {
	AppName  string `env:"MAGIC_LINK_APP_NAME" envDefault:"authkit"`
	LinkBase string `env:"MAGIC_LINK_BASE_URL,required"`

	TokenTTL   time.Duration `env:"MAGIC_LINK_TOKEN_TTL" envDefault:"10m"`
	SendLimit  int           `env:"MAGIC_LINK_SEND_LIMIT" envDefault:"5"`
	SendWindow time.Duration `env:"MAGIC_LINK_SEND_WINDOW" envDefault:"15m"`

	SessionTTL         time.Duration `env:"MAGIC_LINK_SESSION_TTL" envDefault:"720h"`
	SessionIdleTimeout time.Duration `env:"MAGIC_LINK_SESSION_IDLE_TIMEOUT" envDefault:"24h"`

	// ExposeTokenInResult returns the raw token in MagicLinkSent so end-to-end
	// tests can complete the ceremony without an inbox. Never enable it in
	// production.
	ExposeTokenInResult bool `env:"MAGIC_LINK_EXPOSE_TOKEN" envDefault:"false"`
}

// SendMagicLink requests a login link for an email address.
type SendMagicLink struct {
	Email     string
	IP        string
	UserAgent string
}

// MagicLinkSent reports a stored and delivered login token. Token is empty
// unless ExposeTokenInResult is on.
type MagicLinkSent struct {
	TokenID   string
	ExpiresAt time.Time
	Token     string
}

// VerifyMagicLink completes the ceremony with the token from the link.
type VerifyMagicLink struct {
	Token     string
	IP        string
	UserAgent string
}

// MagicLinkFlow issues and verifies single-use email login links.
type MagicLinkFlow struct {
	core
	cfg     MagicLinkConfig
	tokens  singleuse.TokenStore
	limiter *ratelimit.SlidingWindow
	sender  email.Sender
}

// NewMagicLinkFlow assembles the ceremony. Sessions, tokens, limiter and
// sender are required; risk assessment, projections and events come through
// options.
func NewMagicLinkFlow(cfg MagicLinkConfig, tokens singleuse.TokenStore, sessions session.Store, limiter *ratelimit.SlidingWindow, sender email.Sender, opts ...Option) *MagicLinkFlow {
	if cfg.AppName == "" {
		cfg.AppName = "authkit"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 10 * time.Minute
	}
	if cfg.SendLimit <= 0 {
		cfg.SendLimit = 5
	}
	if cfg.SendWindow <= 0 {
		cfg.SendWindow = 15 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}

	return &MagicLinkFlow{
		core:    newCore(sessions, opts),
		cfg:     cfg,
		tokens:  tokens,
		limiter: limiter,
		sender:  sender,
	}
}

func magicLinkRateKey(email string) string {
	return "magiclink:" + email
}

// formatExpiry renders the token TTL the way the email reads it:
// "10 minutes", "1 hour".
func formatExpiry(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		if m := int(d.Minutes()); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		if h := int(d.Hours()); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
}

// Send mints a single-use token, stores it and emails the link. The rate
// limit is per normalized email address; a TooManyAttemptsError passes
// through untouched so callers can surface the retry delay.
func (f *MagicLinkFlow) Send(ctx context.Context, cmd SendMagicLink) (*MagicLinkSent, error) {
	addr := normalizeEmail(cmd.Email)
	if addr == "" {
		return nil, ErrEmailRequired
	}
	if !emailRegex.MatchString(addr) {
		return nil, ErrInvalidEmail
	}

	if err := f.limiter.CheckAndRecord(ctx, magicLinkRateKey(addr), f.cfg.SendLimit, f.cfg.SendWindow); err != nil {
		var tooMany *ratelimit.TooManyAttemptsError
		if errors.As(err, &tooMany) {
			f.log.WarnContext(ctx, "magic link rate limited",
				logger.Flow("magic_link"),
				logger.IP(cmd.IP),
			)
		}
		return nil, err
	}

	id := singleuse.NewTokenID()
	secret, err := singleuse.NewSecret()
	if err != nil {
		return nil, err
	}

	now := f.now()
	expiresAt := now.Add(f.cfg.TokenTTL)
	err = f.tokens.Store(ctx, id, singleuse.TokenData{
		Type:  singleuse.TokenTypeMagicLink,
		Token: secret,
		Payload: map[string]string{
			"email":      addr,
			"ip":         cmd.IP,
			"user_agent": cmd.UserAgent,
		},
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	wire := EncodeToken(id, secret)
	msg, err := email.NewMagicLinkEmail(addr, email.MagicLinkParams{
		AppName:   f.cfg.AppName,
		Link:      f.cfg.LinkBase + "?token=" + url.QueryEscape(wire),
		ExpiresIn: formatExpiry(f.cfg.TokenTTL),
	})
	if err != nil {
		_ = f.tokens.Delete(ctx, id)
		return nil, err
	}
	if err := f.sender.SendEmail(ctx, msg); err != nil {
		// An undeliverable token must not stay consumable.
		_ = f.tokens.Delete(ctx, id)
		return nil, errors.Join(ErrEmailDelivery, err)
	}

	f.log.InfoContext(ctx, "magic link sent",
		logger.Flow("magic_link"),
		logger.Event("magic_link.sent"),
	)

	sent := &MagicLinkSent{TokenID: id, ExpiresAt: expiresAt}
	if f.cfg.ExposeTokenInResult {
		sent.Token = wire
	}
	return sent, nil
}

// Verify consumes the token and turns it into a session. Malformed, unknown,
// expired and already-used tokens all fail with ErrMagicLinkInvalid.
func (f *MagicLinkFlow) Verify(ctx context.Context, cmd VerifyMagicLink) (*SessionCreated, error) {
	id, secret, ok := DecodeToken(cmd.Token)
	if !ok {
		return nil, ErrMagicLinkInvalid
	}

	data, err := f.tokens.Consume(ctx, id, secret)
	if err != nil {
		if errors.Is(err, singleuse.ErrTokenNotFound) {
			return nil, ErrMagicLinkInvalid
		}
		return nil, err
	}
	if data.Type != singleuse.TokenTypeMagicLink {
		f.log.WarnContext(ctx, "token type mismatch on magic link verify",
			logger.Flow("magic_link"),
			logger.Security(),
		)
		return nil, ErrMagicLinkInvalid
	}

	addr := data.Payload["email"]

	// Successful verification forgives earlier sends.
	if err := f.limiter.Reset(ctx, magicLinkRateKey(addr)); err != nil {
		f.log.WarnContext(ctx, "rate limit reset failed", logger.Error(err))
	}

	userID, prevIP, prevAt, known := f.previousLogin(ctx, addr)
	if !known {
		var err error
		userID, err = f.upsertNewUser(ctx, addr)
		if err != nil {
			return nil, err
		}
	}

	return f.finishLogin(ctx, loginParams{
		flowName:    "magic_link",
		strength:    risk.AuthLevelBasic,
		userID:      userID,
		email:       addr,
		ip:          cmd.IP,
		userAgent:   cmd.UserAgent,
		sessionTTL:  f.cfg.SessionTTL,
		idleTimeout: f.cfg.SessionIdleTimeout,
		sliding:     f.cfg.SessionIdleTimeout > 0,
		prevIP:      prevIP,
		prevAt:      prevAt,
	})
}
