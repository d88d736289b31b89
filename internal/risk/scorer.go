// Package risk scores newly listed tokens with ordered fail-fast gates
// followed by an additive composite score.
package risk

import (
	"fmt"
	"strconv"
	"time"

	"solana-token-trader/internal/domain"
)

// Settings are the risk thresholds read from configuration at call time.
type Settings struct {
	LiquidityThreshold       float64       // minimum pool liquidity in USD
	RequireSafetyCheck       bool          // fail when no safety data is available
	MaxRiskScore             int           // maximum acceptable provider risk score
	MaxConcentrationPct      float64       // maximum top-10 holder share in percent
	MinHolders               int           // minimum holder count when known
	MaxTaxPct                float64       // maximum buy/sell tax in percent
	YoungTokenAge            time.Duration // tokens younger than this need extra liquidity
	YoungLiquidityMultiplier float64       // liquidity multiple required of young tokens
	Blacklist                []string      // rejected mint addresses
}

// DefaultSettings returns the thresholds used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		LiquidityThreshold:       1000,
		RequireSafetyCheck:       true,
		MaxRiskScore:             70,
		MaxConcentrationPct:      70,
		MinHolders:               25,
		MaxTaxPct:                20,
		YoungTokenAge:            6 * time.Hour,
		YoungLiquidityMultiplier: 2,
	}
}

func (s Settings) blacklisted(address string) bool {
	for _, a := range s.Blacklist {
		if a == address {
			return true
		}
	}
	return false
}

// Fixed scores for gate failures.
const (
	ScoreBlacklisted       = 100
	ScoreInvalidData       = 90
	ScoreHoneypot          = 95
	ScoreLowLiquidity      = 85
	ScoreMissingSafety     = 80
	ScoreYoungLowLiquidity = 80
	ScoreConcentrated      = 75
	ScoreFewHolders        = 70
	ScoreExcessiveTax      = 65
)

// ReasonPassed is the reason attached to assessments that clear every gate.
const ReasonPassed = "Passed all risk filters"

// Scorer applies the gate pipeline. It holds no state besides its clock.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a Scorer. now may be nil.
func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// evaluation accumulates assessment fields while gates run.
type evaluation struct {
	a        *domain.RiskAssessment
	token    *domain.TokenSnapshot
	report   *domain.SafetyReport
	settings Settings
}

func (e *evaluation) check(name string, status domain.CheckStatus, details string) {
	e.a.Checks[name] = domain.CheckResult{Status: status, Details: details}
}

// fail terminates evaluation at the named check.
func (e *evaluation) fail(name string, score int, reason, details string) *domain.RiskAssessment {
	e.check(name, domain.CheckFailed, details)
	e.a.Passes = false
	e.a.FailedCheck = name
	e.a.Reason = reason
	e.a.RiskScore = domain.ClampInt(score, 0, 100)
	e.a.RiskLevel = domain.RiskLevelFor(e.a.RiskScore)
	return e.a
}

// gate returns a non-nil assessment when the token fails.
type gate func(e *evaluation) *domain.RiskAssessment

// gates run in this order; the first failure ends evaluation.
var gates = []gate{
	blacklistGate,
	liquidityGate,
	safetyGate,
	distributionGate,
	holdersGate,
	taxGate,
	ageGate,
}

// Assess runs every gate in order against token and the safety report (nil when
// unavailable). It never returns an error: malformed input fails the token closed.
func (s *Scorer) Assess(token *domain.TokenSnapshot, report *domain.SafetyReport, settings Settings) *domain.RiskAssessment {
	a := &domain.RiskAssessment{
		Checks:                  make(map[string]domain.CheckResult),
		AssessedAt:              s.now(),
		TopHoldersConcentration: 100,
	}
	if token == nil {
		a.Passes = false
		a.FailedCheck = domain.CheckLiquidity
		a.Reason = "Missing token data"
		a.RiskScore = ScoreInvalidData
		a.RiskLevel = domain.RiskLevelFor(a.RiskScore)
		a.Checks[domain.CheckLiquidity] = domain.CheckResult{Status: domain.CheckFailed, Details: "No token snapshot"}
		return a
	}
	a.TokenAddress = token.Address

	e := &evaluation{a: a, token: token, report: report, settings: settings}
	for _, g := range gates {
		if failed := g(e); failed != nil {
			return failed
		}
	}

	a.RiskScore = CompositeScore(CompositeInputs{
		LiquidityUSD:            a.LiquidityUSD,
		HoldersCount:            a.HoldersCount,
		TopHoldersConcentration: a.TopHoldersConcentration,
		LiquidityLockedUSD:      a.LiquidityLockedUSD,
		ContractVerified:        a.ContractVerified,
		MaxTax:                  a.MaxTax,
		AgeHours:                a.AgeHours,
	})
	a.RiskLevel = domain.RiskLevelFor(a.RiskScore)
	a.Passes = true
	a.Reason = ReasonPassed
	e.check(domain.CheckComposite, domain.CheckPassed, fmt.Sprintf("Composite score %d (%s)", a.RiskScore, a.RiskLevel))
	return a
}

func blacklistGate(e *evaluation) *domain.RiskAssessment {
	if e.settings.blacklisted(e.token.Address) {
		return e.fail(domain.CheckBlacklist, ScoreBlacklisted, "Token is blacklisted.", "Token is on blacklist")
	}
	e.check(domain.CheckBlacklist, domain.CheckPassed, "Not blacklisted")
	return nil
}

func liquidityGate(e *evaluation) *domain.RiskAssessment {
	if !e.token.HasValidLiquidity() {
		return e.fail(domain.CheckLiquidity, ScoreInvalidData, "Invalid liquidity data.", "Invalid data")
	}

	liq := e.token.LiquidityUSD
	e.a.LiquidityUSD = liq
	if liq < e.settings.LiquidityThreshold {
		return e.fail(domain.CheckLiquidity, ScoreLowLiquidity,
			fmt.Sprintf("Insufficient liquidity: %s USD < %s USD.", num(liq), num(e.settings.LiquidityThreshold)),
			fmt.Sprintf("Only $%s available", num(liq)))
	}
	e.check(domain.CheckLiquidity, domain.CheckPassed, fmt.Sprintf("$%s liquidity available", num(liq)))
	return nil
}

func safetyGate(e *evaluation) *domain.RiskAssessment {
	r := e.report
	if r == nil {
		e.a.HoldersCount = e.token.Holders
		e.check(domain.CheckSafety, domain.CheckSkipped, "Safety data unavailable")
		if e.settings.RequireSafetyCheck {
			return e.fail(domain.CheckSafety, ScoreMissingSafety, "Missing required safety data", "Safety data unavailable")
		}
		return nil
	}

	e.a.SafetySource = r.Source
	e.a.SafetySimulated = r.Simulated
	e.a.TopHoldersConcentration = r.TopHoldersConcentration()
	e.a.HoldersCount = r.HoldersCount
	if e.a.HoldersCount == 0 {
		e.a.HoldersCount = e.token.Holders
	}
	e.a.LiquidityLockedUSD = r.LockedLiquidityUSD
	e.a.HoneypotRisk = r.IsHoneypot
	e.a.ContractVerified = r.ContractVerified
	e.a.MaxTax = domain.ClampPct(r.MaxTax)

	status := domain.CheckPassed
	if r.Status == "bad" {
		status = domain.CheckFailed
	}
	details := fmt.Sprintf("Risk status: %s, Score: %d", r.Status, r.RiskScore)
	if r.Simulated {
		details += " (simulated)"
	}
	e.check(domain.CheckSafety, status, details)

	score := domain.ClampInt(r.RiskScore, 0, 100)
	if score > e.settings.MaxRiskScore {
		return e.fail(domain.CheckSafety, score,
			fmt.Sprintf("Risk score too high: %d > %d", score, e.settings.MaxRiskScore), details)
	}
	if r.IsHoneypot {
		return e.fail(domain.CheckHoneypot, ScoreHoneypot, "Potential honeypot detected", "Honeypot flag set by "+sourceName(r))
	}
	e.check(domain.CheckHoneypot, domain.CheckPassed, "No honeypot indicators")
	return nil
}

func distributionGate(e *evaluation) *domain.RiskAssessment {
	c := e.a.TopHoldersConcentration
	details := fmt.Sprintf("Top holder concentration: %.1f%%", c)
	if c > e.settings.MaxConcentrationPct {
		return e.fail(domain.CheckDistribution, ScoreConcentrated,
			fmt.Sprintf("Unhealthy supply distribution: %.1f%% > %s%%", c, num(e.settings.MaxConcentrationPct)), details)
	}
	e.check(domain.CheckDistribution, domain.CheckPassed, details)
	return nil
}

func holdersGate(e *evaluation) *domain.RiskAssessment {
	h := e.a.HoldersCount
	details := fmt.Sprintf("Holders: %d", h)
	if h > 0 && h < e.settings.MinHolders {
		return e.fail(domain.CheckHolders, ScoreFewHolders,
			fmt.Sprintf("Too few holders: %d < %d", h, e.settings.MinHolders), details)
	}
	status := domain.CheckPassed
	if h == 0 {
		status = domain.CheckSkipped
		details = "Holder count unknown"
	}
	e.check(domain.CheckHolders, status, details)
	return nil
}

func taxGate(e *evaluation) *domain.RiskAssessment {
	tax := e.a.MaxTax
	details := fmt.Sprintf("Max tax: %s%%", num(tax))
	if tax > e.settings.MaxTaxPct {
		return e.fail(domain.CheckTax, ScoreExcessiveTax, fmt.Sprintf("Excessive tax: %s%%", num(tax)), details)
	}
	status := domain.CheckPassed
	if tax > 10 {
		status = domain.CheckWarning
	}
	e.check(domain.CheckTax, status, details)
	return nil
}

// ageGate demands a multiple of the liquidity threshold from young tokens.
// A token of unknown age is treated as young.
func ageGate(e *evaluation) *domain.RiskAssessment {
	age, known := TokenAge(e.token, e.report, e.a.AssessedAt)
	e.a.AgeHours = age
	e.a.AgeKnown = known

	young := age < e.settings.YoungTokenAge.Hours()
	required := e.settings.LiquidityThreshold * e.settings.YoungLiquidityMultiplier
	details := fmt.Sprintf("Age: %.1fh", age)
	if !known {
		details = "Age unknown"
	}
	if young && e.a.LiquidityUSD < required {
		return e.fail(domain.CheckAge, ScoreYoungLowLiquidity,
			fmt.Sprintf("Young token needs more liquidity: %s USD < %s USD required under %sh old.",
				num(e.a.LiquidityUSD), num(required), num(e.settings.YoungTokenAge.Hours())),
			details)
	}
	e.check(domain.CheckAge, domain.CheckPassed, details)
	return nil
}

// TokenAge returns the token age in hours at now, preferring the safety
// provider's creation time over the listing time.
func TokenAge(token *domain.TokenSnapshot, report *domain.SafetyReport, now time.Time) (float64, bool) {
	if report != nil && !report.CreatedAt.IsZero() {
		h := now.Sub(report.CreatedAt).Hours()
		if h < 0 {
			h = 0
		}
		return h, true
	}
	if token != nil {
		return token.AgeHours(now)
	}
	return 0, false
}

func sourceName(r *domain.SafetyReport) string {
	if r.Source == "" {
		return "safety provider"
	}
	return r.Source
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
