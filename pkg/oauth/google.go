package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig holds configuration for the Google provider.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/userinfo.email"`
	VerifiedOnly bool     `env:"GOOGLE_OAUTH_VERIFIED_ONLY" envDefault:"true"`
}

type googleProvider struct {
	conf         *oauth2.Config
	httpClient   *http.Client
	userInfoURL  string
	verifiedOnly bool
}

// GoogleOption configures the Google provider.
type GoogleOption func(*googleProvider)

// WithGoogleHTTPClient overrides the HTTP client used for profile fetches.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(p *googleProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithGoogleUserInfoURL overrides the userinfo endpoint.
func WithGoogleUserInfoURL(url string) GoogleOption {
	return func(p *googleProvider) {
		if url != "" {
			p.userInfoURL = url
		}
	}
}

// NewGoogleProvider creates the Google adapter.
func NewGoogleProvider(cfg GoogleConfig, opts ...GoogleOption) (Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, ErrInvalidConfig
	}

	p := &googleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		userInfoURL:  defaultGoogleUserInfoURL,
		verifiedOnly: cfg.VerifiedOnly,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *googleProvider) ID() string {
	return ProviderGoogle
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, ErrInvalidCode
	}
	return tok, nil
}

func (p *googleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return UserInfo{}, errors.Join(ErrProviderFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return UserInfo{}, errors.Join(ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, errors.Join(ErrProviderFailure, fmt.Errorf("google api returned status %d", resp.StatusCode))
	}

	var user struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return UserInfo{}, errors.Join(ErrProviderFailure, err)
	}

	if user.Email == "" {
		return UserInfo{}, ErrNoVerifiedEmail
	}
	// Unverified Gmail-hosted addresses are an account-takeover vector.
	if p.verifiedOnly && !user.VerifiedEmail {
		return UserInfo{}, ErrNoVerifiedEmail
	}

	return UserInfo{
		ProviderUserID: user.ID,
		Email:          user.Email,
		EmailVerified:  user.VerifiedEmail,
		Name:           user.Name,
		AvatarURL:      user.Picture,
	}, nil
}

var _ Provider = (*googleProvider)(nil)
