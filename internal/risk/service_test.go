package risk

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/safety"
)

type stubProvider struct {
	name   string
	report *domain.SafetyReport
	err    error
	calls  int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Check(_ context.Context, address string) (*domain.SafetyReport, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	r := *p.report
	r.TokenAddress = address
	r.Source = p.name
	return &r, nil
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newService(provider, fallback safety.Provider, allowFallback bool, clock *testClock) *Service {
	return NewService(Options{
		Safety:        provider,
		Fallback:      fallback,
		AllowFallback: allowFallback,
		Logger:        zerolog.Nop(),
		Now:           clock.Now,
	})
}

func TestService_CachesAssessments(t *testing.T) {
	clock := &testClock{t: now}
	provider := &stubProvider{name: "rugcheck", report: passingReport()}
	svc := newService(provider, nil, false, clock)
	ctx := context.Background()

	first := svc.Assess(ctx, passingToken())
	require.True(t, first.Passes)

	second := svc.Assess(ctx, passingToken())
	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, 1, provider.calls)

	// Token is 30h old: the long TTL applies.
	clock.t = clock.t.Add(29 * time.Minute)
	svc.Assess(ctx, passingToken())
	assert.Equal(t, 1, provider.calls)

	clock.t = clock.t.Add(time.Minute)
	svc.Assess(ctx, passingToken())
	assert.Equal(t, 2, provider.calls)
}

func TestService_YoungTokensUseShortTTL(t *testing.T) {
	clock := &testClock{t: now}
	report := passingReport()
	report.CreatedAt = now.Add(-10 * time.Hour)
	provider := &stubProvider{name: "rugcheck", report: report}
	svc := newService(provider, nil, false, clock)
	ctx := context.Background()

	svc.Assess(ctx, passingToken())
	clock.t = clock.t.Add(10 * time.Minute)
	svc.Assess(ctx, passingToken())

	assert.Equal(t, 2, provider.calls)
}

func TestService_ReassessesWhenAgeBoundaryCrossed(t *testing.T) {
	clock := &testClock{t: now}
	token := passingToken()
	token.LiquidityUSD = 1500 // below 2x threshold while young
	report := passingReport()
	report.CreatedAt = now.Add(-5*time.Hour - 55*time.Minute)
	provider := &stubProvider{name: "rugcheck", report: report}

	svc := NewService(Options{
		Safety:   provider,
		YoungTTL: 2 * time.Hour,
		Logger:   zerolog.Nop(),
		Now:      clock.Now,
	})
	ctx := context.Background()

	a := svc.Assess(ctx, token)
	require.False(t, a.Passes)
	assert.Equal(t, domain.CheckAge, a.FailedCheck)

	clock.t = clock.t.Add(2 * time.Minute)
	a = svc.Assess(ctx, token)
	assert.False(t, a.Passes)
	assert.Equal(t, 1, provider.calls, "still young, cached")

	clock.t = clock.t.Add(5 * time.Minute)
	a = svc.Assess(ctx, token)
	assert.True(t, a.Passes, a.Reason)
	assert.Equal(t, 2, provider.calls)
}

func TestService_FallbackOnlyWhenAllowed(t *testing.T) {
	clock := &testClock{t: now}
	primary := &stubProvider{name: "rugcheck", err: safety.ErrUnavailable}
	fallback := &stubProvider{name: "simulated", report: passingReport()}
	ctx := context.Background()

	strict := newService(primary, fallback, false, clock)
	a := strict.Assess(ctx, passingToken())
	assert.False(t, a.Passes)
	assert.Equal(t, ScoreMissingSafety, a.RiskScore)
	assert.Equal(t, 0, fallback.calls)

	lenient := newService(primary, fallback, true, clock)
	a = lenient.Assess(ctx, passingToken())
	assert.True(t, a.Passes, a.Reason)
	assert.Equal(t, "simulated", a.SafetySource)
	assert.Equal(t, 1, fallback.calls)
}

func TestService_DoesNotCacheTransientFailures(t *testing.T) {
	clock := &testClock{t: now}
	provider := &stubProvider{name: "rugcheck", err: safety.ErrUnavailable}
	svc := newService(provider, nil, false, clock)
	ctx := context.Background()

	svc.Assess(ctx, passingToken())
	svc.Assess(ctx, passingToken())
	assert.Equal(t, 2, provider.calls)

	low := passingToken()
	low.LiquidityUSD = 10
	a := svc.Assess(ctx, low)
	assert.Equal(t, ScoreLowLiquidity, a.RiskScore)
	assert.Equal(t, 2, provider.calls, "liquidity failure skips the provider")
}

func TestService_InvalidateDropsCache(t *testing.T) {
	clock := &testClock{t: now}
	provider := &stubProvider{name: "rugcheck", report: passingReport()}
	svc := newService(provider, nil, false, clock)
	ctx := context.Background()

	svc.Assess(ctx, passingToken())
	svc.Invalidate(ctx, "mintPass")
	svc.Assess(ctx, passingToken())

	assert.Equal(t, 2, provider.calls)
}

func TestCrossedAgeBoundary(t *testing.T) {
	a := &domain.RiskAssessment{AgeKnown: true, AgeHours: 23.5, AssessedAt: now}

	assert.False(t, crossedAgeBoundary(a, now.Add(20*time.Minute), 6*time.Hour))
	assert.True(t, crossedAgeBoundary(a, now.Add(30*time.Minute), 6*time.Hour))

	a.AgeKnown = false
	assert.False(t, crossedAgeBoundary(a, now.Add(10*time.Hour), 6*time.Hour))
}
