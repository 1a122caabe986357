package oauth

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider identifiers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// UserInfo is the provider-agnostic profile a flow needs to upsert a user.
type UserInfo struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// Provider is one configured OAuth2 provider. Implementations are stateless;
// the caller supplies and later consumes the CSRF state value.
type Provider interface {
	// ID is the wire identifier ("google", "github").
	ID() string

	// AuthCodeURL builds the authorization URL embedding the state value.
	AuthCodeURL(state string) string

	// Exchange trades the callback code for a token. Any exchange failure is
	// ErrInvalidCode.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserInfo loads the user's profile with the exchanged token.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (UserInfo, error)
}

// Registry resolves providers by ID for callback routing.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

// Get returns the provider or ErrUnknownProvider.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// IDs lists the configured provider identifiers.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}
