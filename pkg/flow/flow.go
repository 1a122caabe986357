package flow

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/risk"
	"github.com/dmitrymomot/authkit/pkg/session"
)

// RiskCalculator assesses a login attempt. Satisfied by *risk.Calculator.
type RiskCalculator interface {
	Calculate(ctx context.Context, login risk.LoginContext) (risk.Assessment, error)
}

// SessionCreated is the terminal result of every successful ceremony.
type SessionCreated struct {
	Session session.Session
	Risk    risk.Assessment
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EncodeToken packs a token ID and its secret into the single opaque value
// that travels through a link or state parameter. Both halves are URL-safe.
func EncodeToken(id, secret string) string {
	return id + "." + secret
}

// DecodeToken splits an encoded token. ok is false for malformed input;
// callers must collapse that into the same failure as a wrong secret.
func DecodeToken(raw string) (id, secret string, ok bool) {
	id, secret, ok = strings.Cut(raw, ".")
	if !ok || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}

func authLevelRank(level risk.AuthLevel) int {
	switch level {
	case risk.AuthLevelMultiFactor:
		return 1
	case risk.AuthLevelHardwareBacked:
		return 2
	default:
		return 0
	}
}

// Option configures the collaborators shared by all flows.
type Option func(*core)

// WithRiskCalculator enables login risk assessment. Without it every login
// is treated as low risk.
func WithRiskCalculator(rc RiskCalculator) Option {
	return func(c *core) { c.risk = rc }
}

// WithUserRepository lets flows consult the user projection for previous
// login data and existing accounts.
func WithUserRepository(r UserRepository) Option {
	return func(c *core) { c.users = r }
}

// WithDeviceRepository lets flows reuse known device IDs instead of minting
// a fresh one per login.
func WithDeviceRepository(r DeviceRepository) Option {
	return func(c *core) { c.devices = r }
}

// WithEventEmitter wires identity events to the orchestration runtime.
func WithEventEmitter(e EventEmitter) Option {
	return func(c *core) { c.emitter = e }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *core) { c.log = log }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

func newCore(sessions session.Store, opts []Option) core {
	c := core{
		sessions: sessions,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// core is the shared tail of every ceremony: assess risk, gate on strength,
// resolve the device, create the session, emit the login event.
type core struct {
	sessions session.Store
	risk     RiskCalculator
	users    UserRepository
	devices  DeviceRepository
	emitter  EventEmitter
	log      *slog.Logger
	now      func() time.Time
}

// loginParams describes a ceremony that already authenticated the user.
type loginParams struct {
	flowName    string
	strength    risk.AuthLevel
	userID      uuid.UUID
	email       string
	ip          string
	userAgent   string
	provider    string
	sessionTTL  time.Duration
	idleTimeout time.Duration
	sliding     bool
	prevIP      string
	prevAt      time.Time
}

func (c *core) finishLogin(ctx context.Context, p loginParams) (*SessionCreated, error) {
	assessment, err := c.assess(ctx, p)
	if err != nil {
		return nil, err
	}

	if authLevelRank(assessment.RecommendedAuthLevel) > authLevelRank(p.strength) {
		c.log.WarnContext(ctx, "login requires stronger ceremony",
			logger.Flow(p.flowName),
			logger.UserID(p.userID),
			logger.RiskLevel(string(assessment.Level)),
			logger.RiskScore(assessment.Score),
			logger.Security(),
		)
		return nil, ErrStrongerAuthRequired
	}

	deviceID, newDevice := c.resolveDevice(ctx, p.userID, p.userAgent)

	sess := session.New(session.Params{
		UserID:         p.userID,
		DeviceID:       deviceID,
		Email:          p.email,
		TTL:            p.sessionTTL,
		IdleTimeout:    p.idleTimeout,
		SlidingRefresh: p.sliding,
		IPAddress:      p.ip,
		UserAgent:      p.userAgent,
		OAuthProvider:  p.provider,
		LoginRiskScore: assessment.Score,
	})
	if err := c.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	if err := c.emitLogin(ctx, p, sess.ID, deviceID, newDevice, assessment); err != nil {
		// A login without an audit trail did not happen.
		_ = c.sessions.Delete(ctx, sess.ID)
		return nil, err
	}

	c.log.InfoContext(ctx, "session created",
		logger.Flow(p.flowName),
		logger.UserID(p.userID),
		logger.SessionID(sess.ID),
		logger.RiskLevel(string(assessment.Level)),
	)

	return &SessionCreated{Session: *sess, Risk: assessment}, nil
}

func (c *core) assess(ctx context.Context, p loginParams) (risk.Assessment, error) {
	if c.risk == nil {
		return risk.Assessment{
			Level:                risk.LevelLow,
			RecommendedAuthLevel: risk.AuthLevelBasic,
		}, nil
	}

	return c.risk.Calculate(ctx, risk.LoginContext{
		Email:      p.email,
		IP:         p.ip,
		UserAgent:  p.userAgent,
		At:         c.now(),
		PreviousIP: p.prevIP,
		PreviousAt: p.prevAt,
	})
}

// resolveDevice reuses a known device for the user agent or mints an ID for
// a new one. The device projection catches up through the emitted event.
func (c *core) resolveDevice(ctx context.Context, userID uuid.UUID, userAgent string) (uuid.UUID, bool) {
	if c.devices == nil || userAgent == "" {
		return uuid.New(), true
	}
	device, err := c.devices.FindByUserAndAgent(ctx, userID, userAgent)
	if err != nil || device == nil {
		return uuid.New(), true
	}
	return device.ID, false
}

func (c *core) emitLogin(ctx context.Context, p loginParams, sessionID, deviceID uuid.UUID, newDevice bool, assessment risk.Assessment) error {
	if c.emitter == nil {
		return nil
	}

	now := c.now()
	if newDevice {
		if err := c.emitter.Emit(ctx, Event{
			Type: EventDeviceSeen,
			At:   now,
			Payload: map[string]string{
				"device_id":  deviceID.String(),
				"user_id":    p.userID.String(),
				"user_agent": p.userAgent,
			},
		}); err != nil {
			return err
		}
	}

	return c.emitter.Emit(ctx, Event{
		Type: EventUserLoggedIn,
		At:   now,
		Payload: map[string]string{
			"user_id":    p.userID.String(),
			"session_id": sessionID.String(),
			"device_id":  deviceID.String(),
			"flow":       p.flowName,
			"ip":         p.ip,
			"risk_level": string(assessment.Level),
		},
	})
}

// upsertNewUser mints an ID for a first-time email and announces the account
// through an event. The projection owns the actual insert; if the event
// cannot be emitted the login fails rather than leaving a phantom ID.
func (c *core) upsertNewUser(ctx context.Context, email string) (uuid.UUID, error) {
	userID := uuid.New()
	if c.emitter == nil {
		return userID, nil
	}
	err := c.emitter.Emit(ctx, Event{
		Type: EventUserUpserted,
		At:   c.now(),
		Payload: map[string]string{
			"user_id": userID.String(),
			"email":   email,
		},
	})
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// previousLogin pulls the last-login fields off a user record, tolerating a
// nil repository or an unknown user.
func (c *core) previousLogin(ctx context.Context, email string) (uuid.UUID, string, time.Time, bool) {
	if c.users == nil {
		return uuid.Nil, "", time.Time{}, false
	}
	user, err := c.users.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return uuid.Nil, "", time.Time{}, false
	}
	return user.ID, user.LastLoginIP, user.LastLoginAt, true
}
