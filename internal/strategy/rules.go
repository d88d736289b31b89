package strategy

import (
	"fmt"

	"solana-token-trader/internal/domain"
)

// Rule names
const (
	RuleStopLoss      = "stop_loss"
	RuleTakeProfit    = "take_profit"
	RuleSevereLoss    = "severe_loss"
	RuleStrongProfit  = "strong_profit"
	RuleRiskFailed    = "risk_failed"
	RuleAIAvoid       = "ai_avoid"
	RuleHoldingPeriod = "holding_period"
)

// defaultRules returns the exit rules in priority order.
// Stop-loss precedes take-profit so a position crossing both is cut.
func defaultRules() []rule {
	return []rule{
		stopLossRule{},
		takeProfitRule{},
		severeLossRule{},
		strongProfitRule{},
		riskFailedRule{},
		aiAvoidRule{},
		holdingPeriodRule{},
	}
}

func exit(s *state, action domain.Action, reason string, confidence, fraction float64, reasons ...string) Exit {
	size := s.in.Position.AmountIn * fraction
	return Exit{
		Decision: domain.NewTradingDecision(s.in.Token, action, confidence, reasons, size, s.now),
		Reason:   reason,
		Fraction: fraction,
	}
}

type stopLossRule struct{}

func (stopLossRule) Name() string { return RuleStopLoss }

func (stopLossRule) Evaluate(s *state) (Exit, bool) {
	stop := s.in.Position.StopLoss
	if stop == nil || *stop <= 0 || s.price > *stop {
		return Exit{}, false
	}
	return exit(s, domain.ActionCutLoss, domain.ExitReasonStopLoss, 0.9, 1,
		fmt.Sprintf("Stop loss triggered at %s", price(*stop)),
		fmt.Sprintf("Current loss: %.2f%%", s.pnlPct)), true
}

type takeProfitRule struct{}

func (takeProfitRule) Name() string { return RuleTakeProfit }

func (takeProfitRule) Evaluate(s *state) (Exit, bool) {
	target := s.in.Position.TakeProfit
	if target == nil || *target <= 0 || s.price < *target {
		return Exit{}, false
	}
	return exit(s, domain.ActionTakeProfit, domain.ExitReasonTakeProfit, 0.9, 1,
		fmt.Sprintf("Take profit target reached: %s", price(*target)),
		fmt.Sprintf("Current profit: %.2f%%", s.pnlPct)), true
}

type severeLossRule struct{}

func (severeLossRule) Name() string { return RuleSevereLoss }

func (severeLossRule) Evaluate(s *state) (Exit, bool) {
	if s.pnlPct > s.settings.SevereLossPct {
		return Exit{}, false
	}
	return exit(s, domain.ActionCutLoss, domain.ExitReasonSevereLoss, 0.85, 1,
		fmt.Sprintf("Severe loss detected: %.2f%%", s.pnlPct),
		"Emergency exit to prevent further losses"), true
}

type strongProfitRule struct{}

func (strongProfitRule) Name() string { return RuleStrongProfit }

// Evaluate takes a partial profit and sets a new target for the remainder.
// Once a partial exit has booked and the remainder's target is still above
// the price, the remainder is left to that target.
func (strongProfitRule) Evaluate(s *state) (Exit, bool) {
	if s.pnlPct < s.settings.StrongProfitPct {
		return Exit{}, false
	}
	p := s.in.Position
	if p.AmountOut > 0 && p.TakeProfit != nil && *p.TakeProfit > s.price {
		return Exit{}, false
	}
	e := exit(s, domain.ActionTakeProfit, domain.ExitReasonStrongProfit, 0.8, s.settings.PartialExitFraction,
		fmt.Sprintf("Strong profit secured: %.2f%%", s.pnlPct),
		"Booking profits to reduce exposure")
	target := s.price * (1 + s.settings.RemainderTargetPct/100)
	e.Decision.PriceTarget = &target
	return e, true
}

type riskFailedRule struct{}

func (riskFailedRule) Name() string { return RuleRiskFailed }

func (riskFailedRule) Evaluate(s *state) (Exit, bool) {
	r := s.in.Risk
	if r == nil || r.Passes {
		return Exit{}, false
	}
	return exit(s, domain.ActionSell, domain.ExitReasonRiskFailed, 0.75, 1,
		"Risk assessment failed: "+r.Reason,
		"Exiting position due to increased risk"), true
}

type aiAvoidRule struct{}

func (aiAvoidRule) Name() string { return RuleAIAvoid }

func (aiAvoidRule) Evaluate(s *state) (Exit, bool) {
	if s.in.AI == nil || s.in.AI.Recommendation != domain.RecommendationAvoid {
		return Exit{}, false
	}
	return exit(s, domain.ActionSell, domain.ExitReasonAIAvoid, 0.7, 1,
		"AI analysis recommends avoiding this token",
		fmt.Sprintf("Current P/L: %.2f%%", s.pnlPct)), true
}

type holdingPeriodRule struct{}

func (holdingPeriodRule) Name() string { return RuleHoldingPeriod }

// Evaluate exits profitable positions held longer than their target period.
func (holdingPeriodRule) Evaluate(s *state) (Exit, bool) {
	if s.held <= s.in.Position.HoldingPeriod() || s.pnlPct <= 0 {
		return Exit{}, false
	}
	return exit(s, domain.ActionTakeProfit, domain.ExitReasonHoldingPeriod, 0.65, 1,
		"Target holding period reached: "+holdingHours(s.held),
		fmt.Sprintf("Positive return achieved: %.2f%%", s.pnlPct)), true
}

func price(v float64) string {
	return fmt.Sprintf("%.8g", v)
}
