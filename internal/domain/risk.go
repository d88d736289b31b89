package domain

import "time"

// RiskLevel is a coarse bucket derived from a risk score.
type RiskLevel string

// Risk levels
const (
	RiskLevelLow     RiskLevel = "low"
	RiskLevelMedium  RiskLevel = "medium"
	RiskLevelHigh    RiskLevel = "high"
	RiskLevelExtreme RiskLevel = "extreme"
)

// RiskLevelFor maps a score in [0,100] to its level: <30 low, <50 medium, <75 high, else extreme.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score < 30:
		return RiskLevelLow
	case score < 50:
		return RiskLevelMedium
	case score < 75:
		return RiskLevelHigh
	default:
		return RiskLevelExtreme
	}
}

// CheckStatus is the outcome of a single risk check.
type CheckStatus string

// Check statuses
const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckSkipped CheckStatus = "skipped"
	CheckWarning CheckStatus = "warning"
)

// CheckResult records one gate's outcome for auditing.
type CheckResult struct {
	Status  CheckStatus `json:"result"`
	Details string      `json:"details"`
}

// Check names used as keys of RiskAssessment.Checks.
const (
	CheckBlacklist    = "blacklist"
	CheckLiquidity    = "liquidity"
	CheckSafety       = "safety"
	CheckHoneypot     = "honeypot"
	CheckDistribution = "distribution"
	CheckHolders      = "holders"
	CheckTax          = "tax"
	CheckAge          = "age"
	CheckComposite    = "composite"
)

// RiskAssessment is the result of running the risk gates on a token.
// Corresponds to risk_assessments table in PostgreSQL. Never mutated after
// construction; a new assessment replaces a cached one.
type RiskAssessment struct {
	TokenAddress            string                 // mint address
	Passes                  bool                   // all gates passed
	Reason                  string                 // user-facing reason
	FailedCheck             string                 // check that terminated evaluation, "" when Passes
	RiskScore               int                    // [0,100]
	RiskLevel               RiskLevel              // derived from RiskScore
	LiquidityUSD            float64                // liquidity used for gating
	HoldersCount            int                    // holder count
	TopHoldersConcentration float64                // top-10 holders %, [0,100]
	LiquidityLockedUSD      float64                // locked LP value in USD
	ContractVerified        bool                   // verified contract
	HoneypotRisk            bool                   // honeypot flagged
	MaxTax                  float64                // max(buy, sell) tax %
	AgeHours                float64                // token age at assessment
	AgeKnown                bool                   // false when neither provider knew the listing time
	Checks                  map[string]CheckResult // per-gate results
	SafetySource            string                 // provider that supplied safety data ("" if none)
	SafetySimulated         bool                   // safety data came from the simulated provider
	AssessedAt              time.Time              // assessment time
}

// SafetyReport is the data returned by a rug/contract checker.
type SafetyReport struct {
	TokenAddress       string    // mint address
	Status             string    // provider status ("good", "caution", "bad", ...)
	RiskScore          int       // provider risk score, clamped to [0,100]
	TopHolderPcts      []float64 // holder shares as fractions (0.2 = 20%), largest first
	HoldersCount       int       // holder count, 0 if unknown
	LockedLiquidityUSD float64   // locked LP value in USD
	IsHoneypot         bool      // honeypot flag
	ContractVerified   bool      // verified contract
	MaxTax             float64   // max(buy, sell) tax %
	CreatedAt          time.Time // token creation time, zero if unknown
	Source             string    // provider name
	Simulated          bool      // true for synthetic reports
}

// TopHoldersConcentration returns the share held by the 10 largest holders in percent.
// Without holder data the concentration is treated as 100%.
func (r *SafetyReport) TopHoldersConcentration() float64 {
	if len(r.TopHolderPcts) == 0 {
		return 100
	}
	n := len(r.TopHolderPcts)
	if n > 10 {
		n = 10
	}
	var sum float64
	for _, pct := range r.TopHolderPcts[:n] {
		sum += pct
	}
	return ClampPct(sum * 100)
}
