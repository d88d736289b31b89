package risk

import "solana-token-trader/internal/domain"

// CompositeInputs are the fields the composite score is computed from.
type CompositeInputs struct {
	LiquidityUSD            float64
	HoldersCount            int
	TopHoldersConcentration float64
	LiquidityLockedUSD      float64
	ContractVerified        bool
	MaxTax                  float64
	AgeHours                float64
}

// CompositeScore starts at 50 and applies independent tiered adjustments.
// Lower is safer. The result is clamped to [0,100].
func CompositeScore(in CompositeInputs) int {
	score := 50

	switch liq := in.LiquidityUSD; {
	case liq >= 50000:
		score -= 15
	case liq >= 10000:
		score -= 10
	case liq >= 5000:
		score -= 5
	case liq < 1000:
		score += 15
	}

	switch h := in.HoldersCount; {
	case h >= 1000:
		score -= 15
	case h >= 200:
		score -= 10
	case h >= 50:
		score -= 5
	case h < 25:
		score += 15
	}

	switch c := in.TopHoldersConcentration; {
	case c <= 30:
		score -= 15
	case c <= 50:
		score -= 10
	case c <= 70:
		score -= 5
	case c > 85:
		score += 15
	}

	liq := in.LiquidityUSD
	if liq < 1 {
		liq = 1
	}
	switch locked := in.LiquidityLockedUSD / liq * 100; {
	case locked >= 80:
		score -= 15
	case locked >= 50:
		score -= 10
	case locked >= 30:
		score -= 5
	case locked < 10:
		score += 10
	}

	if in.ContractVerified {
		score -= 10
	} else {
		score += 15
	}

	switch tax := in.MaxTax; {
	case tax <= 5:
		score -= 10
	case tax <= 10:
		score -= 5
	case tax > 15:
		score += int(tax / 2)
	}

	switch age := in.AgeHours; {
	case age >= 720:
		score -= 15
	case age >= 168:
		score -= 10
	case age >= 48:
		score -= 5
	case age < 24:
		score += 15
	}

	return domain.ClampInt(score, 0, 100)
}
