package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authkit/pkg/oauth"
)

func googleConfig() oauth.GoogleConfig {
	return oauth.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/callback/google",
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
		VerifiedOnly: true,
	}
}

func githubConfig() oauth.GitHubConfig {
	return oauth.GitHubConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/callback/github",
		Scopes:       []string{"user:email"},
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	google, err := oauth.NewGoogleProvider(googleConfig())
	require.NoError(t, err)
	github, err := oauth.NewGitHubProvider(githubConfig())
	require.NoError(t, err)

	registry := oauth.NewRegistry(google, github)

	got, err := registry.Get(oauth.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, oauth.ProviderGoogle, got.ID())

	got, err = registry.Get(oauth.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, oauth.ProviderGitHub, got.ID())

	_, err = registry.Get("gitlab")
	assert.ErrorIs(t, err, oauth.ErrUnknownProvider)

	assert.ElementsMatch(t, []string{"google", "github"}, registry.IDs())
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()

	google, err := oauth.NewGoogleProvider(googleConfig())
	require.NoError(t, err)

	raw := google.AuthCodeURL("state-value-123")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "state-value-123", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/callback/google", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := oauth.NewGoogleProvider(oauth.GoogleConfig{ClientID: "only-id"})
	assert.ErrorIs(t, err, oauth.ErrInvalidConfig)

	_, err = oauth.NewGitHubProvider(oauth.GitHubConfig{ClientSecret: "only-secret"})
	assert.ErrorIs(t, err, oauth.ErrInvalidConfig)
}

func TestGoogleFetchUserInfo(t *testing.T) {
	t.Parallel()

	t.Run("verified email", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id":"g-123","email":"user@example.com","verified_email":true,"name":"User","picture":"https://img.example.com/u"}`))
		}))
		defer srv.Close()

		p, err := oauth.NewGoogleProvider(googleConfig(), oauth.WithGoogleUserInfoURL(srv.URL))
		require.NoError(t, err)

		info, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
		require.NoError(t, err)
		assert.Equal(t, "g-123", info.ProviderUserID)
		assert.Equal(t, "user@example.com", info.Email)
		assert.True(t, info.EmailVerified)
	})

	t.Run("unverified email rejected", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"g-123","email":"user@example.com","verified_email":false}`))
		}))
		defer srv.Close()

		p, err := oauth.NewGoogleProvider(googleConfig(), oauth.WithGoogleUserInfoURL(srv.URL))
		require.NoError(t, err)

		_, err = p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
		assert.ErrorIs(t, err, oauth.ErrNoVerifiedEmail)
	})

	t.Run("provider outage", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p, err := oauth.NewGoogleProvider(googleConfig(), oauth.WithGoogleUserInfoURL(srv.URL))
		require.NoError(t, err)

		_, err = p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
		assert.ErrorIs(t, err, oauth.ErrProviderFailure)
	})
}

func TestGitHubFetchUserInfo(t *testing.T) {
	t.Parallel()

	t.Run("prefers primary verified email", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/user":
				w.Write([]byte(`{"id":42,"name":"Octo","avatar_url":"https://img.example.com/octo"}`))
			case "/user/emails":
				w.Write([]byte(`[
					{"email":"secondary@example.com","primary":false,"verified":true},
					{"email":"primary@example.com","primary":true,"verified":true}
				]`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		p, err := oauth.NewGitHubProvider(githubConfig(), oauth.WithGitHubAPIBaseURL(srv.URL))
		require.NoError(t, err)

		info, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
		require.NoError(t, err)
		assert.Equal(t, "42", info.ProviderUserID)
		assert.Equal(t, "primary@example.com", info.Email)
		assert.True(t, info.EmailVerified)
	})

	t.Run("falls back to any verified email", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/user":
				w.Write([]byte(`{"id":42}`))
			case "/user/emails":
				w.Write([]byte(`[
					{"email":"unverified@example.com","primary":true,"verified":false},
					{"email":"verified@example.com","primary":false,"verified":true}
				]`))
			}
		}))
		defer srv.Close()

		p, err := oauth.NewGitHubProvider(githubConfig(), oauth.WithGitHubAPIBaseURL(srv.URL))
		require.NoError(t, err)

		info, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
		require.NoError(t, err)
		assert.Equal(t, "verified@example.com", info.Email)
	})

	t.Run("no verified email", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/user":
				w.Write([]byte(`{"id":42}`))
			case "/user/emails":
				w.Write([]byte(`[{"email":"unverified@example.com","primary":true,"verified":false}]`))
			}
		}))
		defer srv.Close()

		p, err := oauth.NewGitHubProvider(githubConfig(), oauth.WithGitHubAPIBaseURL(srv.URL))
		require.NoError(t, err)

		_, err = p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
		assert.ErrorIs(t, err, oauth.ErrNoVerifiedEmail)
	})
}
