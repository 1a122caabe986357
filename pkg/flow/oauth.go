package flow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/oauth"
	"github.com/dmitrymomot/authkit/pkg/risk"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/singleuse"
)

// OAuthConfig holds OAuth ceremony settings.
type OAuthConfig struct {
	StateTTL           time.Duration `env:"OAUTH_STATE_TTL" envDefault:"5m"`
	SessionTTL         time.Duration `env:"OAUTH_SESSION_TTL" envDefault:"720h"`
	SessionIdleTimeout time.Duration `env:"OAUTH_SESSION_IDLE_TIMEOUT" envDefault:"24h"`
}

// InitiateOAuth starts the redirect leg for a provider.
type InitiateOAuth struct {
	Provider string
}

// OAuthAuthorizationURLReady carries the provider redirect URL and the state
// value bound to this attempt.
type OAuthAuthorizationURLReady struct {
	URL       string
	State     string
	ExpiresAt time.Time
}

// OAuthCallback completes the ceremony with the provider's redirect back.
type OAuthCallback struct {
	Code          string
	State         string
	ProviderError string
	IP            string
	UserAgent     string
}

// OAuthFlow drives the authorization-code ceremony against registered
// providers, with the state parameter stored single-use as CSRF defense.
type OAuthFlow struct {
	core
	cfg       OAuthConfig
	tokens    singleuse.TokenStore
	providers *oauth.Registry
}

func NewOAuthFlow(cfg OAuthConfig, tokens singleuse.TokenStore, sessions session.Store, providers *oauth.Registry, opts ...Option) *OAuthFlow {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}

	return &OAuthFlow{
		core:      newCore(sessions, opts),
		cfg:       cfg,
		tokens:    tokens,
		providers: providers,
	}
}

// Initiate stores a fresh single-use state value and returns the provider's
// authorization URL carrying it.
func (f *OAuthFlow) Initiate(ctx context.Context, cmd InitiateOAuth) (*OAuthAuthorizationURLReady, error) {
	if cmd.Provider == "" {
		return nil, ErrProviderRequired
	}
	provider, err := f.providers.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	id := singleuse.NewTokenID()
	secret, err := singleuse.NewSecret()
	if err != nil {
		return nil, err
	}

	now := f.now()
	expiresAt := now.Add(f.cfg.StateTTL)
	err = f.tokens.Store(ctx, id, singleuse.TokenData{
		Type:      singleuse.TokenTypeOAuthState,
		Token:     secret,
		Payload:   map[string]string{"provider": provider.ID()},
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	state := EncodeToken(id, secret)
	return &OAuthAuthorizationURLReady{
		URL:       provider.AuthCodeURL(state),
		State:     state,
		ExpiresAt: expiresAt,
	}, nil
}

// Callback validates the state, exchanges the code and turns the provider
// identity into a session. The state check runs before any provider call:
// a forged or replayed state never reaches the token exchange.
func (f *OAuthFlow) Callback(ctx context.Context, cmd OAuthCallback) (*SessionCreated, error) {
	if cmd.ProviderError != "" {
		f.log.WarnContext(ctx, "oauth provider returned error",
			logger.Flow("oauth"),
			logger.Event("oauth.provider_error"),
		)
		return nil, errors.Join(ErrOAuthProviderError, errors.New(cmd.ProviderError))
	}

	id, secret, ok := DecodeToken(cmd.State)
	if !ok {
		return nil, ErrOAuthStateInvalid
	}

	data, err := f.tokens.Consume(ctx, id, secret)
	if err != nil {
		if errors.Is(err, singleuse.ErrTokenNotFound) {
			f.log.WarnContext(ctx, "oauth state rejected",
				logger.Flow("oauth"),
				logger.IP(cmd.IP),
				logger.Security(),
			)
			return nil, ErrOAuthStateInvalid
		}
		return nil, err
	}
	if data.Type != singleuse.TokenTypeOAuthState {
		f.log.WarnContext(ctx, "token type mismatch on oauth callback",
			logger.Flow("oauth"),
			logger.Security(),
		)
		return nil, ErrOAuthStateInvalid
	}

	provider, err := f.providers.Get(data.Payload["provider"])
	if err != nil {
		return nil, ErrOAuthStateInvalid
	}

	token, err := provider.Exchange(ctx, cmd.Code)
	if err != nil {
		return nil, err
	}
	info, err := provider.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	addr := normalizeEmail(info.Email)
	if addr == "" {
		return nil, ErrInvalidEmail
	}

	userID, prevIP, prevAt, known := f.previousLogin(ctx, addr)
	if !known {
		userID = uuid.New()
	}
	if err := f.emitProfileUpsert(ctx, userID, addr, provider.ID(), info); err != nil {
		return nil, err
	}

	return f.finishLogin(ctx, loginParams{
		flowName:    "oauth",
		strength:    risk.AuthLevelMultiFactor,
		userID:      userID,
		email:       addr,
		ip:          cmd.IP,
		userAgent:   cmd.UserAgent,
		provider:    provider.ID(),
		sessionTTL:  f.cfg.SessionTTL,
		idleTimeout: f.cfg.SessionIdleTimeout,
		sliding:     f.cfg.SessionIdleTimeout > 0,
		prevIP:      prevIP,
		prevAt:      prevAt,
	})
}

// emitProfileUpsert publishes the provider profile on every login so the
// projection keeps name and avatar current.
func (f *OAuthFlow) emitProfileUpsert(ctx context.Context, userID uuid.UUID, email, provider string, info oauth.UserInfo) error {
	if f.emitter == nil {
		return nil
	}
	return f.emitter.Emit(ctx, Event{
		Type: EventUserUpserted,
		At:   f.now(),
		Payload: map[string]string{
			"user_id":          userID.String(),
			"email":            email,
			"name":             info.Name,
			"avatar_url":       info.AvatarURL,
			"provider":         provider,
			"provider_user_id": info.ProviderUserID,
		},
	})
}
