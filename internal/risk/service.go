package risk

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/observability"
	"solana-token-trader/internal/safety"
	"solana-token-trader/internal/ttlcache"
)

// Cache lifetimes for assessments.
const (
	DefaultTTL      = 30 * time.Minute
	DefaultYoungTTL = 10 * time.Minute
	youngCacheAge   = 24 * time.Hour
)

// Options configures Service.
type Options struct {
	Scorer   *Scorer
	Safety   safety.Provider // primary provider
	Fallback safety.Provider // used only when AllowFallback is set; may be nil
	Cache    *ttlcache.Layered[domain.RiskAssessment]
	Settings func() Settings // read on every call

	AllowFallback bool
	TTL           time.Duration // lifetime for tokens at least 24h old
	YoungTTL      time.Duration // lifetime for younger tokens

	Logger zerolog.Logger
	Now    func() time.Time
}

// Service runs the scorer against live safety data and caches the result.
type Service struct {
	opts Options
}

// NewService creates a Service, filling unset options with defaults.
func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Scorer == nil {
		opts.Scorer = NewScorer(opts.Now)
	}
	if opts.Settings == nil {
		opts.Settings = DefaultSettings
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.YoungTTL <= 0 {
		opts.YoungTTL = DefaultYoungTTL
	}
	if opts.Cache == nil {
		opts.Cache = ttlcache.Local[domain.RiskAssessment](ttlcache.WithName("risk"), ttlcache.WithClock(opts.Now))
	}
	opts.Logger = opts.Logger.With().Str("component", "risk").Logger()
	return &Service{opts: opts}
}

// Assess returns a cached assessment or scores the token afresh.
// It never fails: provider errors degrade to missing safety data.
func (s *Service) Assess(ctx context.Context, token *domain.TokenSnapshot) *domain.RiskAssessment {
	settings := s.opts.Settings()
	now := s.opts.Now()

	if token != nil {
		if cached, ok := s.opts.Cache.Get(ctx, token.Address); ok {
			if !crossedAgeBoundary(&cached, now, settings.YoungTokenAge) {
				return &cached
			}
			s.opts.Logger.Debug().Str("token", token.Address).Msg("age boundary crossed, reassessing")
		}
	}

	var report *domain.SafetyReport
	if needsSafety(token, settings) {
		report = s.fetchSafety(ctx, token.Address)
	}

	a := s.opts.Scorer.Assess(token, report, settings)

	observability.RecordTokenEvaluated(a.RiskScore)
	if !a.Passes {
		observability.RecordRiskRejection(a.FailedCheck)
	}

	if token != nil && cacheable(a) {
		s.opts.Cache.Put(ctx, token.Address, *a, s.ttlFor(a))
	}
	return a
}

// Invalidate drops the cached assessment for address.
func (s *Service) Invalidate(ctx context.Context, address string) {
	s.opts.Cache.Delete(ctx, address)
}

// Cache exposes the assessment cache for maintenance.
func (s *Service) Cache() *ttlcache.Layered[domain.RiskAssessment] {
	return s.opts.Cache
}

func (s *Service) fetchSafety(ctx context.Context, address string) *domain.SafetyReport {
	log := s.opts.Logger.With().Str("token", address).Logger()

	if s.opts.Safety != nil {
		report, err := s.opts.Safety.Check(ctx, address)
		if err == nil {
			return report
		}
		if !errors.Is(err, safety.ErrUnavailable) {
			log.Warn().Err(err).Str("provider", s.opts.Safety.Name()).Msg("safety check failed")
		} else {
			log.Info().Err(err).Str("provider", s.opts.Safety.Name()).Msg("no safety data")
		}
	}

	if !s.opts.AllowFallback || s.opts.Fallback == nil {
		return nil
	}
	report, err := s.opts.Fallback.Check(ctx, address)
	if err != nil {
		log.Warn().Err(err).Str("provider", s.opts.Fallback.Name()).Msg("fallback safety check failed")
		return nil
	}
	observability.RecordProviderDefault(s.opts.Fallback.Name())
	log.Warn().Str("provider", s.opts.Fallback.Name()).Msg("using fallback safety data")
	return report
}

// needsSafety skips the provider call when an earlier gate will fail anyway.
func needsSafety(token *domain.TokenSnapshot, settings Settings) bool {
	if token == nil || settings.blacklisted(token.Address) || !token.HasValidLiquidity() {
		return false
	}
	return token.LiquidityUSD >= settings.LiquidityThreshold
}

// ttlFor gives tokens under 24h (or of unknown age) the shorter lifetime.
func (s *Service) ttlFor(a *domain.RiskAssessment) time.Duration {
	if !a.AgeKnown || a.AgeHours < youngCacheAge.Hours() {
		return s.opts.YoungTTL
	}
	return s.opts.TTL
}

// cacheable excludes outcomes that depend on fast-changing or transient inputs:
// liquidity failures and missing safety data are retried on the next poll.
func cacheable(a *domain.RiskAssessment) bool {
	if a.Passes {
		return true
	}
	switch a.FailedCheck {
	case domain.CheckLiquidity:
		return false
	case domain.CheckSafety:
		return a.SafetySource != ""
	}
	return true
}

// crossedAgeBoundary reports whether the token has aged past the young-token
// threshold or the 24h cache boundary since the assessment was made.
func crossedAgeBoundary(a *domain.RiskAssessment, now time.Time, youngAge time.Duration) bool {
	if !a.AgeKnown {
		return false
	}
	then := a.AgeHours
	elapsed := now.Sub(a.AssessedAt).Hours()
	if elapsed <= 0 {
		return false
	}
	current := then + elapsed
	for _, b := range []float64{youngAge.Hours(), youngCacheAge.Hours()} {
		if then < b && current >= b {
			return true
		}
	}
	return false
}
