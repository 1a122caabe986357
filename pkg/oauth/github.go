package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubAPIBaseURL = "https://api.github.com"

// GitHubConfig holds configuration for the GitHub provider.
type GitHubConfig struct {
	ClientID     string   `env:"GITHUB_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GITHUB_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GITHUB_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"GITHUB_OAUTH_SCOPES" envSeparator:"," envDefault:"user:email"`
}

type githubProvider struct {
	conf       *oauth2.Config
	httpClient *http.Client
	apiBaseURL string
}

// GitHubOption configures the GitHub provider.
type GitHubOption func(*githubProvider)

// WithGitHubHTTPClient overrides the HTTP client used for profile fetches.
func WithGitHubHTTPClient(client *http.Client) GitHubOption {
	return func(p *githubProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithGitHubAPIBaseURL overrides the API base URL.
func WithGitHubAPIBaseURL(url string) GitHubOption {
	return func(p *githubProvider) {
		if url != "" {
			p.apiBaseURL = url
		}
	}
}

// NewGitHubProvider creates the GitHub adapter.
func NewGitHubProvider(cfg GitHubConfig, opts ...GitHubOption) (Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, ErrInvalidConfig
	}

	p := &githubProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBaseURL: defaultGitHubAPIBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *githubProvider) ID() string {
	return ProviderGitHub
}

func (p *githubProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *githubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, ErrInvalidCode
	}
	return tok, nil
}

// FetchUserInfo reads /user for the account ID and /user/emails for a
// verified address. GitHub reports verification only on the emails endpoint,
// so the profile email alone is never trusted.
func (p *githubProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (UserInfo, error) {
	var user struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := p.getJSON(ctx, token, "/user", &user); err != nil {
		return UserInfo{}, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, token, "/user/emails", &emails); err != nil {
		return UserInfo{}, err
	}

	var email string
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if email == "" {
		for _, e := range emails {
			if e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return UserInfo{}, ErrNoVerifiedEmail
	}

	return UserInfo{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		EmailVerified:  true,
		Name:           user.Name,
		AvatarURL:      user.AvatarURL,
	}, nil
}

func (p *githubProvider) getJSON(ctx context.Context, token *oauth2.Token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Join(ErrProviderFailure, fmt.Errorf("github api returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrProviderFailure, err)
	}
	return nil
}

var _ Provider = (*githubProvider)(nil)
