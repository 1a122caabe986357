package flow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/flow"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/risk"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/singleuse"
)

type magicLinkEnv struct {
	flow     *flow.MagicLinkFlow
	tokens   *singleuse.MemoryTokenStore
	sessions *session.MemoryStore
	sender   *captureSender
	emitter  *captureEmitter
}

func newMagicLinkEnv(t *testing.T, cfg flow.MagicLinkConfig, opts ...flow.Option) *magicLinkEnv {
	t.Helper()

	if cfg.LinkBase == "" {
		cfg.LinkBase = "https://app.example.com/auth/verify"
	}

	tokens := singleuse.NewMemoryTokenStore()
	t.Cleanup(func() { _ = tokens.Close() })

	sessions := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = sessions.Close() })

	sender := &captureSender{}
	emitter := &captureEmitter{}
	limiter := ratelimit.NewSlidingWindow(ratelimit.NewMemoryStore())

	opts = append([]flow.Option{flow.WithEventEmitter(emitter)}, opts...)

	return &magicLinkEnv{
		flow:     flow.NewMagicLinkFlow(cfg, tokens, sessions, limiter, sender, opts...),
		tokens:   tokens,
		sessions: sessions,
		sender:   sender,
		emitter:  emitter,
	}
}

func TestMagicLinkFlow_Send(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("sends link with stored token", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{AppName: "Acme"})

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "User@Example.COM"})
		require.NoError(t, err)
		assert.NotEmpty(t, sent.TokenID)
		assert.Empty(t, sent.Token, "token must not surface by default")

		msg := env.sender.last(t)
		assert.Equal(t, "user@example.com", msg.To)
		assert.Contains(t, msg.BodyHTML, "https://app.example.com/auth/verify?token=")
		assert.Contains(t, msg.BodyHTML, "expires in 10 minutes")

		exists, err := env.tokens.Exists(ctx, sent.TokenID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("zero-value config gets usable defaults", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{})

		_, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		msg := env.sender.last(t)
		assert.Equal(t, "Sign in to authkit", msg.Subject)
	})

	t.Run("custom token ttl is spelled out in the email", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{TokenTTL: time.Hour})

		_, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		assert.Contains(t, env.sender.last(t).BodyHTML, "expires in 1 hour")
	})

	t.Run("exposes token only when configured", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true})

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sent.Token, sent.TokenID+"."))
	})

	t.Run("rejects missing and malformed emails", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{})

		_, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "   "})
		assert.ErrorIs(t, err, flow.ErrEmailRequired)

		_, err = env.flow.Send(ctx, flow.SendMagicLink{Email: "not-an-email"})
		assert.ErrorIs(t, err, flow.ErrInvalidEmail)
	})

	t.Run("rate limits per email", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{SendLimit: 2, SendWindow: time.Minute})

		for range 2 {
			_, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
			require.NoError(t, err)
		}

		_, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)

		var tooMany *ratelimit.TooManyAttemptsError
		require.ErrorAs(t, err, &tooMany)
		assert.Equal(t, 2, tooMany.Limit)
		assert.Positive(t, tooMany.RetryAfter)

		// Another address is unaffected.
		_, err = env.flow.Send(ctx, flow.SendMagicLink{Email: "other@example.com"})
		assert.NoError(t, err)
	})

	t.Run("delivery failure removes the token", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true})
		env.sender.err = errors.New("smtp down")

		_, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.ErrorIs(t, err, flow.ErrEmailDelivery)
	})
}

func TestMagicLinkFlow_Verify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("full roundtrip creates session and events", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true})

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com", IP: "203.0.113.7"})
		require.NoError(t, err)

		created, err := env.flow.Verify(ctx, flow.VerifyMagicLink{
			Token:     sent.Token,
			IP:        "203.0.113.7",
			UserAgent: "test-agent",
		})
		require.NoError(t, err)

		assert.Equal(t, "user@example.com", created.Session.Email)
		assert.Equal(t, "203.0.113.7", created.Session.IPAddress)
		assert.NotEqual(t, uuid.Nil, created.Session.UserID)
		assert.Equal(t, risk.LevelLow, created.Risk.Level)

		got, err := env.sessions.Get(ctx, created.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Session.UserID, got.UserID)

		upserts := env.emitter.ofType(flow.EventUserUpserted)
		require.Len(t, upserts, 1)
		assert.Equal(t, "user@example.com", upserts[0].Payload["email"])

		logins := env.emitter.ofType(flow.EventUserLoggedIn)
		require.Len(t, logins, 1)
		assert.Equal(t, created.Session.UserID.String(), logins[0].Payload["user_id"])
		assert.Equal(t, "magic_link", logins[0].Payload["flow"])

		require.Len(t, env.emitter.ofType(flow.EventDeviceSeen), 1)
	})

	t.Run("token is single use", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true})

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		_, err = env.flow.Verify(ctx, flow.VerifyMagicLink{Token: sent.Token})
		require.NoError(t, err)

		_, err = env.flow.Verify(ctx, flow.VerifyMagicLink{Token: sent.Token})
		assert.ErrorIs(t, err, flow.ErrMagicLinkInvalid)
	})

	t.Run("malformed and unknown tokens collapse", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{})

		for _, token := range []string{"", "no-dot", ".", "id.", ".secret", "unknown.secret"} {
			_, err := env.flow.Verify(ctx, flow.VerifyMagicLink{Token: token})
			assert.ErrorIs(t, err, flow.ErrMagicLinkInvalid, "token %q", token)
		}
	})

	t.Run("known user keeps identity and skips upsert", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		users := newMemUserRepo(flow.User{ID: userID, Email: "user@example.com"})

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true}, flow.WithUserRepository(users))

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		created, err := env.flow.Verify(ctx, flow.VerifyMagicLink{Token: sent.Token})
		require.NoError(t, err)
		assert.Equal(t, userID, created.Session.UserID)
		assert.Empty(t, env.emitter.ofType(flow.EventUserUpserted))
	})

	t.Run("verify resets the send limit", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{SendLimit: 1, SendWindow: time.Hour, ExposeTokenInResult: true})

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		_, err = env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)

		_, err = env.flow.Verify(ctx, flow.VerifyMagicLink{Token: sent.Token})
		require.NoError(t, err)

		_, err = env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		assert.NoError(t, err)
	})

	t.Run("high risk demands stronger ceremony", func(t *testing.T) {
		t.Parallel()

		assessor := &stubRisk{assessment: risk.Assessment{
			Score:                0.7,
			Level:                risk.LevelHigh,
			RecommendedAuthLevel: risk.AuthLevelHardwareBacked,
		}}

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true}, flow.WithRiskCalculator(assessor))

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		_, err = env.flow.Verify(ctx, flow.VerifyMagicLink{Token: sent.Token})
		assert.ErrorIs(t, err, flow.ErrStrongerAuthRequired)
	})

	t.Run("emit failure rolls the session back", func(t *testing.T) {
		t.Parallel()

		env := newMagicLinkEnv(t, flow.MagicLinkConfig{ExposeTokenInResult: true})

		sent, err := env.flow.Send(ctx, flow.SendMagicLink{Email: "user@example.com"})
		require.NoError(t, err)

		env.emitter.err = errors.New("broker down")

		_, err = env.flow.Verify(ctx, flow.VerifyMagicLink{Token: sent.Token})
		require.Error(t, err)
	})
}
