// Package decision fuses AI, risk, sentiment and market signals into a trading decision.
package decision

import (
	"fmt"
	"math"
	"strings"
	"time"

	"solana-token-trader/internal/domain"
)

// Engine turns evaluation results into trading decisions. It never fails:
// missing inputs produce a low-confidence HOLD.
type Engine struct {
	settings func() Settings
	now      func() time.Time
}

// NewEngine creates an engine. settings is read on every call; nil uses DefaultSettings.
func NewEngine(settings func() Settings, now func() time.Time) *Engine {
	if settings == nil {
		settings = DefaultSettings
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{settings: settings, now: now}
}

// Decide produces the decision for one token.
func (e *Engine) Decide(in Input) *domain.TradingDecision {
	now := e.now()
	settings := e.settings()

	if missing := missingInputs(in); len(missing) > 0 {
		return domain.NewTradingDecision(in.Token, domain.ActionHold, 0.5,
			[]string{"Incomplete evaluation inputs: missing " + strings.Join(missing, ", ")}, 0, now)
	}

	// Explicit AVOID with high risk or low confidence bypasses signal fusion.
	if in.AI.Recommendation == domain.RecommendationAvoid &&
		(in.AI.RiskScore > avoidRiskAbove || in.AI.AIConfidence < avoidConfidenceBelow) {
		reasons := []string{
			fmt.Sprintf("AI explicitly recommends avoiding this token (confidence: %.1f/10)", in.AI.AIConfidence),
			fmt.Sprintf("High risk assessment from AI (%.1f/10)", in.AI.RiskScore),
		}
		reasons = append(reasons, top(in.AI.RiskReasons, 2)...)
		return domain.NewTradingDecision(in.Token, domain.ActionHold, avoidConfidence, reasons, 0, now)
	}

	signals := ComputeSignals(in)
	action, confidence, reasons := baseAction(signals.Consensus, in)

	var size float64
	if in.Portfolio != nil {
		action, confidence, reasons, size = applyPortfolio(action, confidence, reasons, in.Portfolio, in.Token.Address, settings)
	} else if action == domain.ActionBuy || action.IsExit() {
		size = math.Min(settings.DefaultPositionSOL*math.Min(confidence*2, 1), settings.MaxPositionSOL)
	}

	d := domain.NewTradingDecision(in.Token, action, confidence, reasons, size, now)
	d.Consensus = signals.Consensus
	d.PriceTarget, d.StopLoss = priceLevels(action, in.Token.PriceUSD, in.AI)
	return d
}

func missingInputs(in Input) []string {
	var missing []string
	if in.Token == nil {
		missing = append(missing, "token")
	}
	if in.AI == nil {
		missing = append(missing, "AI evaluation")
	}
	if in.Risk == nil {
		missing = append(missing, "risk assessment")
	}
	return missing
}

// baseAction walks the action ladder; the first matching tier wins.
func baseAction(consensus float64, in Input) (domain.Action, float64, []string) {
	abs := math.Abs(consensus)
	var reasons []string

	switch {
	case consensus >= StrongBuyThreshold:
		reasons = append(reasons, fmt.Sprintf("Strong positive consensus signal: %.2f", consensus))
		if in.AI.Recommendation == domain.RecommendationBuy {
			reasons = append(reasons, fmt.Sprintf("AI recommends BUY with confidence %.1f/10", in.AI.AIConfidence))
		}
		if in.Risk.Passes {
			reasons = append(reasons, fmt.Sprintf("Passed all risk filters with score %d", in.Risk.RiskScore))
		}
		return domain.ActionBuy, math.Min(abs+0.2, 1), reasons

	case consensus >= BuyThreshold:
		reasons = append(reasons, fmt.Sprintf("Positive consensus signal: %.2f", consensus))
		if in.Sentiment != nil && in.Sentiment.Label == "bullish" {
			reasons = append(reasons, "Positive social sentiment")
		}
		if in.Risk.RiskLevel == domain.RiskLevelLow || in.Risk.RiskLevel == domain.RiskLevelMedium {
			reasons = append(reasons, fmt.Sprintf("Acceptable risk level: %s", in.Risk.RiskLevel))
		}
		return domain.ActionBuy, abs, reasons

	case consensus > WeakBuyThreshold:
		reasons = append(reasons,
			fmt.Sprintf("Weak positive signal: %.2f", consensus),
			"Signal too weak for confident buy decision")
		return domain.ActionHold, 0.5 + abs*0.5, reasons

	case consensus <= StrongSellThreshold:
		reasons = append(reasons, fmt.Sprintf("Strong negative consensus signal: %.2f", consensus))
		if in.AI.Recommendation == domain.RecommendationAvoid {
			reasons = append(reasons, "AI explicitly recommends avoiding this token")
		}
		if !in.Risk.Passes {
			reasons = append(reasons, "Failed risk assessment: "+in.Risk.Reason)
		}
		return domain.ActionSell, math.Min(abs+0.2, 1), reasons

	case consensus <= SellThreshold:
		reasons = append(reasons, fmt.Sprintf("Negative consensus signal: %.2f", consensus))
		if in.Sentiment != nil && in.Sentiment.Label == "bearish" {
			reasons = append(reasons, "Negative social sentiment")
		}
		if in.Risk.RiskLevel == domain.RiskLevelHigh || in.Risk.RiskLevel == domain.RiskLevelExtreme {
			reasons = append(reasons, fmt.Sprintf("High risk level: %s", in.Risk.RiskLevel))
		}
		return domain.ActionSell, abs, reasons

	case consensus < WeakSellThreshold:
		reasons = append(reasons,
			fmt.Sprintf("Mild negative signal: %.2f", consensus),
			"Consider partial position exit due to weaker signal")
		return domain.ActionSell, abs * 0.8, reasons
	}

	reasons = append(reasons,
		fmt.Sprintf("Neutral consensus signal: %.2f", consensus),
		"Insufficient conviction for new position")
	return domain.ActionHold, 0.5 + abs*2, reasons
}

// applyPortfolio enforces the daily trade cap, available capital, position
// limits and the existing-position requirement for exits.
func applyPortfolio(action domain.Action, confidence float64, reasons []string,
	p *domain.PortfolioState, address string, s Settings) (domain.Action, float64, []string, float64) {

	hasPosition := p.HasPosition(address)

	if action == domain.ActionBuy && !hasPosition && p.DailyTradeCount >= s.MaxDailyTrades {
		reasons = append(reasons, fmt.Sprintf("Daily trade limit reached (%d/%d)", p.DailyTradeCount, s.MaxDailyTrades))
		return domain.ActionNoAction, math.Min(confidence, 0.3), reasons, 0
	}

	if action == domain.ActionBuy && p.AvailableSOL < s.DefaultPositionSOL {
		if p.AvailableSOL <= s.DefaultPositionSOL*0.5 {
			reasons = append(reasons, fmt.Sprintf("Insufficient SOL available (%.3f)", p.AvailableSOL))
			return domain.ActionNoAction, math.Min(confidence, 0.2), reasons, 0
		}
		reasons = append(reasons, fmt.Sprintf("Reduced position size due to available SOL (%.3f)", p.AvailableSOL))
	}

	if action.IsExit() && !hasPosition {
		reasons = append(reasons, "No existing position to sell")
		return domain.ActionNoAction, math.Min(confidence, 0.2), reasons, 0
	}

	if action != domain.ActionBuy && !action.IsExit() {
		return action, confidence, reasons, 0
	}

	size := s.DefaultPositionSOL * math.Min(confidence*1.5, 1)
	if action == domain.ActionBuy {
		size = math.Min(size, math.Min(p.AvailableSOL*0.9, s.MaxPositionSOL))
		if p.TotalValueSOL > 0 && size/p.TotalValueSOL*100 > s.MaxPortfolioRiskPct {
			size = p.TotalValueSOL * s.MaxPortfolioRiskPct / 100 * 0.9
			reasons = append(reasons, fmt.Sprintf("Position size constrained by risk limit (%s%%)", trimFloat(s.MaxPortfolioRiskPct)))
		}
	}
	return action, confidence, reasons, size
}

// priceLevels returns the target and stop for action at price.
// Exit levels are informational only.
func priceLevels(action domain.Action, price float64, ai *domain.AIEvaluation) (target, stop *float64) {
	if price <= 0 {
		return nil, nil
	}
	switch {
	case action == domain.ActionBuy:
		t := price * (1 + 0.2*math.Min(ai.AIConfidence/5, 2))
		s := price * (1 - (0.1 + 0.2*math.Max(ai.RiskScore/10, 0.1)))
		return &t, &s
	case action.IsExit():
		t := price * 0.95
		s := price * 1.05
		return &t, &s
	}
	return nil, nil
}

func top(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
