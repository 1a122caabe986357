package risk

import (
	"context"
	"log/slog"
	"time"
)

// Factor weights. Scores sum across factors and clamp to 1.0, so two medium
// signals escalate the same way one severe signal does.
const (
	weightVPN              = 0.2
	weightTor              = 0.5
	weightKnownBad         = 0.6
	weightImpossibleTravel = 0.5
	weightBreachedEmail    = 0.3
)

// maxTravelSpeedKmh flags logins implying faster-than-airliner movement
// between the previous and current geocoded points.
const maxTravelSpeedKmh = 900.0

// Calculator aggregates risk factors into an Assessment. All collaborators
// are optional; a Calculator with none always assesses LevelLow.
type Calculator struct {
	reputation IPReputationChecker
	geo        GeoResolver
	breach     BreachChecker
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithIPReputationChecker enables the VPN/Tor/known-bad factor.
func WithIPReputationChecker(checker IPReputationChecker) Option {
	return func(c *Calculator) { c.reputation = checker }
}

// WithGeoResolver enables the impossible-travel factor.
func WithGeoResolver(resolver GeoResolver) Option {
	return func(c *Calculator) { c.geo = resolver }
}

// WithBreachChecker enables the credential-breach factor.
func WithBreachChecker(checker BreachChecker) Option {
	return func(c *Calculator) { c.breach = checker }
}

// WithLogger sets the logger for degraded-factor warnings.
func WithLogger(log *slog.Logger) Option {
	return func(c *Calculator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides time.Now, for deterministic travel-speed tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCalculator creates a Calculator with the given collaborators.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		log: slog.New(slog.DiscardHandler),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Calculate scores the login attempt. Collaborator failures degrade their
// factor to zero and are logged; they never fail the assessment, so a risk
// backend outage cannot lock every user out.
func (c *Calculator) Calculate(ctx context.Context, login LoginContext) (Assessment, error) {
	var factors []Factor

	factors = append(factors, c.reputationFactors(ctx, login)...)

	if travel := c.travelFactor(ctx, login); travel != nil {
		factors = append(factors, *travel)
	}

	if breached := c.breachFactor(ctx, login); breached != nil {
		factors = append(factors, *breached)
	}

	score := 0.0
	for _, f := range factors {
		score += f.Score
	}
	if score > 1.0 {
		score = 1.0
	}

	level := levelFor(score)
	return Assessment{
		Score:                score,
		Level:                level,
		Factors:              factors,
		RecommendedAuthLevel: authLevelFor(level),
	}, nil
}

func (c *Calculator) reputationFactors(ctx context.Context, login LoginContext) []Factor {
	if c.reputation == nil || login.IP == "" {
		return nil
	}

	rep, err := c.reputation.Check(ctx, login.IP)
	if err != nil {
		c.log.WarnContext(ctx, "ip reputation check degraded",
			slog.String("ip", login.IP),
			slog.Any("error", err))
		return nil
	}

	var factors []Factor
	if rep.VPN {
		factors = append(factors, Factor{Name: FactorVPN, Score: weightVPN})
	}
	if rep.Tor {
		factors = append(factors, Factor{Name: FactorTor, Score: weightTor})
	}
	if rep.KnownBad {
		factors = append(factors, Factor{Name: FactorKnownBadActor, Score: weightKnownBad})
	}
	return factors
}

func (c *Calculator) travelFactor(ctx context.Context, login LoginContext) *Factor {
	if c.geo == nil || login.IP == "" || login.PreviousIP == "" || login.PreviousAt.IsZero() {
		return nil
	}
	if login.IP == login.PreviousIP {
		return nil
	}

	current, err := c.geo.Resolve(ctx, login.IP)
	if err != nil {
		c.log.WarnContext(ctx, "geo resolution degraded",
			slog.String("ip", login.IP),
			slog.Any("error", err))
		return nil
	}
	previous, err := c.geo.Resolve(ctx, login.PreviousIP)
	if err != nil {
		c.log.WarnContext(ctx, "geo resolution degraded",
			slog.String("ip", login.PreviousIP),
			slog.Any("error", err))
		return nil
	}
	if current == nil || previous == nil {
		return nil
	}

	at := login.At
	if at.IsZero() {
		at = c.now()
	}
	elapsed := at.Sub(login.PreviousAt)
	if elapsed <= 0 {
		return nil
	}

	distanceKm := haversineKm(*previous, *current)
	speed := distanceKm / elapsed.Hours()
	if speed <= maxTravelSpeedKmh {
		return nil
	}

	return &Factor{
		Name:   FactorImpossibleTravel,
		Score:  weightImpossibleTravel,
		Detail: "implied travel speed exceeds " + speedDetail(speed),
	}
}

func (c *Calculator) breachFactor(ctx context.Context, login LoginContext) *Factor {
	if c.breach == nil || login.Email == "" {
		return nil
	}

	breached, err := c.breach.IsBreached(ctx, login.Email)
	if err != nil {
		c.log.WarnContext(ctx, "breach lookup degraded", slog.Any("error", err))
		return nil
	}
	if !breached {
		return nil
	}
	return &Factor{Name: FactorBreachedEmail, Score: weightBreachedEmail}
}
