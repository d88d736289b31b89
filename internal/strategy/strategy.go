// Package strategy decides how open positions are exited.
package strategy

import (
	"fmt"
	"time"

	"solana-token-trader/internal/domain"
)

// ExitInput holds all data needed to evaluate one open position.
type ExitInput struct {
	Token    *domain.TokenSnapshot  // current snapshot, PriceUSD is the mark price
	Position *domain.Position       // open position
	AI       *domain.AIEvaluation   // latest evaluation, optional
	Risk     *domain.RiskAssessment // latest assessment, optional
	Market   *domain.MarketContext  // optional, not used by the current rules
}

// Exit is the outcome of evaluating a position.
type Exit struct {
	Decision *domain.TradingDecision
	Reason   string  // exit reason code, "" for HOLD
	Fraction float64 // share of the position to close, 0 for HOLD
}

// state is the per-evaluation view handed to each rule.
type state struct {
	in       ExitInput
	now      time.Time
	price    float64
	pnlPct   float64
	held     time.Duration
	settings ExitSettings
}

// rule is one exit condition. Rules run in priority order; the first match wins.
type rule interface {
	Name() string
	Evaluate(s *state) (Exit, bool)
}

// ExitMachine evaluates open positions against an ordered list of rules.
type ExitMachine struct {
	settings ExitSettings
	rules    []rule
	now      func() time.Time
}

// NewExitMachine creates a machine with the default rule order.
func NewExitMachine(settings ExitSettings, now func() time.Time) (*ExitMachine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &ExitMachine{settings: settings, rules: defaultRules(), now: now}, nil
}

// Rules returns the rule names in evaluation order.
func (m *ExitMachine) Rules() []string {
	names := make([]string, len(m.rules))
	for i, r := range m.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate returns the exit decision for in. It never fails: missing prices yield HOLD.
func (m *ExitMachine) Evaluate(in ExitInput) Exit {
	now := m.now()

	if in.Position == nil || in.Token == nil || in.Token.PriceUSD <= 0 || in.Position.EntryPrice <= 0 {
		var size float64
		if in.Position != nil {
			size = in.Position.AmountIn
		}
		return m.hold(in.Token, now, size, 0.5, "Insufficient price data for exit evaluation")
	}

	s := &state{
		in:       in,
		now:      now,
		price:    in.Token.PriceUSD,
		pnlPct:   in.Position.PnLPct(in.Token.PriceUSD),
		held:     in.Position.HeldFor(now),
		settings: m.settings,
	}

	for _, r := range m.rules {
		if exit, ok := r.Evaluate(s); ok {
			exit.Decision.StrategyName = domain.StrategyExitMachine
			return exit
		}
	}

	return m.hold(in.Token, now, in.Position.AmountIn, 0.6,
		fmt.Sprintf("No exit conditions met. Current P/L: %.2f%%", s.pnlPct),
		"Holding period: "+holdingHours(s.held))
}

func (m *ExitMachine) hold(token *domain.TokenSnapshot, now time.Time, size, confidence float64, reasons ...string) Exit {
	d := domain.NewTradingDecision(token, domain.ActionHold, confidence, reasons, size, now)
	d.StrategyName = domain.StrategyExitMachine
	return Exit{Decision: d}
}

func holdingHours(d time.Duration) string {
	return fmt.Sprintf("%.1f hours", d.Hours())
}
