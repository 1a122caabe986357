package risk

import (
	"context"
	"time"
)

// Level buckets a score for policy decisions and audit logs.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// AuthLevel is the minimum authentication strength a flow must enforce for
// the assessed login.
type AuthLevel string

const (
	AuthLevelBasic          AuthLevel = "basic"
	AuthLevelMultiFactor    AuthLevel = "multi_factor"
	AuthLevelHardwareBacked AuthLevel = "hardware_backed"
)

// Factor names.
const (
	FactorVPN              = "vpn"
	FactorTor              = "tor"
	FactorKnownBadActor    = "known_bad_actor"
	FactorImpossibleTravel = "impossible_travel"
	FactorBreachedEmail    = "breached_email"
)

// Factor is one scored signal contributing to an assessment.
type Factor struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Detail string  `json:"detail,omitempty"`
}

// Assessment is the outcome of scoring one login attempt.
type Assessment struct {
	Score                float64   `json:"score"`
	Level                Level     `json:"level"`
	Factors              []Factor  `json:"factors,omitempty"`
	RecommendedAuthLevel AuthLevel `json:"recommended_auth_level"`
}

// LoginContext carries everything known about the attempt being scored.
// PreviousIP/PreviousAt describe the user's last successful login and feed
// the impossible-travel check; leave them zero when unknown.
type LoginContext struct {
	Email      string
	IP         string
	UserAgent  string
	At         time.Time
	PreviousIP string
	PreviousAt time.Time
}

// Reputation is what an IPReputationChecker knows about an address.
type Reputation struct {
	VPN      bool
	Tor      bool
	KnownBad bool
}

// IPReputationChecker classifies an IP address.
type IPReputationChecker interface {
	Check(ctx context.Context, ip string) (Reputation, error)
}

// Location is a geocoded point.
type Location struct {
	Latitude  float64
	Longitude float64
}

// GeoResolver geocodes an IP address. A nil location with a nil error means
// the address could not be located; the travel check is skipped.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*Location, error)
}

// BreachChecker reports whether the email appears in known credential dumps.
type BreachChecker interface {
	IsBreached(ctx context.Context, email string) (bool, error)
}

// levelFor buckets a score. Thresholds are fixed; callers tune behavior by
// weighting factors, not by moving the buckets.
func levelFor(score float64) Level {
	switch {
	case score < 0.3:
		return LevelLow
	case score < 0.6:
		return LevelMedium
	case score < 0.8:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// authLevelFor maps a risk level to the minimum acceptable strength.
func authLevelFor(level Level) AuthLevel {
	switch level {
	case LevelLow:
		return AuthLevelBasic
	case LevelMedium:
		return AuthLevelMultiFactor
	default:
		return AuthLevelHardwareBacked
	}
}
