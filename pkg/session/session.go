package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated session record. The ID is the bearer
// credential; everything else is bookkeeping for expiry and audit.
type Session struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	DeviceID       uuid.UUID     `json:"device_id,omitempty"`
	Email          string        `json:"email"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActiveAt   time.Time     `json:"last_active_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	SlidingRefresh bool          `json:"sliding_refresh"`
	IPAddress      string        `json:"ip_address,omitempty"`
	UserAgent      string        `json:"user_agent,omitempty"`
	OAuthProvider  string        `json:"oauth_provider,omitempty"`
	LoginRiskScore float64       `json:"login_risk_score"`
}

// Params carries the request metadata captured at login time.
type Params struct {
	UserID         uuid.UUID
	DeviceID       uuid.UUID
	Email          string
	TTL            time.Duration
	IdleTimeout    time.Duration
	SlidingRefresh bool
	IPAddress      string
	UserAgent      string
	OAuthProvider  string
	LoginRiskScore float64
}

// New creates a session with a fresh random ID. TTL defaults to 24 hours and
// IdleTimeout to the TTL when unset.
func New(p Params) *Session {
	now := time.Now()

	ttl := p.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	idle := p.IdleTimeout
	if idle <= 0 {
		idle = ttl
	}

	return &Session{
		ID:             uuid.New(),
		UserID:         p.UserID,
		DeviceID:       p.DeviceID,
		Email:          p.Email,
		CreatedAt:      now,
		LastActiveAt:   now,
		ExpiresAt:      now.Add(ttl),
		IdleTimeout:    idle,
		SlidingRefresh: p.SlidingRefresh,
		IPAddress:      p.IPAddress,
		UserAgent:      p.UserAgent,
		OAuthProvider:  p.OAuthProvider,
		LoginRiskScore: p.LoginRiskScore,
	}
}

// IsExpired reports whether the session expiry has passed.
func (s *Session) IsExpired() bool {
	return s != nil && time.Now().After(s.ExpiresAt)
}

// Validate checks the structural invariants of the record.
func (s *Session) Validate() error {
	if s == nil || s.ID == uuid.Nil || s.UserID == uuid.Nil {
		return ErrInvalidSession
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return ErrInvalidSession
	}
	return nil
}
