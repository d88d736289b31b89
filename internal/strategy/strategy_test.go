package strategy

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"solana-token-trader/internal/domain"
)

var now = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func newMachine(t *testing.T) *ExitMachine {
	t.Helper()
	m, err := NewExitMachine(DefaultExitSettings(), func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewExitMachine failed: %v", err)
	}
	return m
}

func ptr(v float64) *float64 { return &v }

// openPosition: entry 1.0, 2 SOL in, held 10 hours, no stop or target.
func openPosition() *domain.Position {
	return &domain.Position{
		ID:           "pos-1",
		TokenAddress: "mint1",
		EntryPrice:   1.0,
		EntryTime:    now.Add(-10 * time.Hour),
		AmountIn:     2,
		Status:       domain.PositionOpen,
	}
}

func input(price float64, pos *domain.Position) ExitInput {
	ai := domain.NewAIEvaluation("mint1", 6, 4, domain.RecommendationHold, now)
	return ExitInput{
		Token:    &domain.TokenSnapshot{Address: "mint1", Symbol: "ONE", PriceUSD: price},
		Position: pos,
		AI:       &ai,
		Risk:     &domain.RiskAssessment{TokenAddress: "mint1", Passes: true, RiskScore: 30},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExitMachine_HoldsProfitablePositionWithinPeriod(t *testing.T) {
	m := newMachine(t)

	exit := m.Evaluate(input(1.25, openPosition()))
	d := exit.Decision

	if d.Action != domain.ActionHold {
		t.Fatalf("Action = %s, want HOLD", d.Action)
	}
	if exit.Reason != "" || exit.Fraction != 0 {
		t.Errorf("HOLD should carry no exit reason, got %q/%v", exit.Reason, exit.Fraction)
	}
	if !almostEqual(d.Confidence, 0.6) {
		t.Errorf("Confidence = %v, want 0.6", d.Confidence)
	}
	want := []string{"No exit conditions met. Current P/L: 25.00%", "Holding period: 10.0 hours"}
	if !reflect.DeepEqual(d.Reasons, want) {
		t.Errorf("Reasons = %v, want %v", d.Reasons, want)
	}
	if d.StrategyName != domain.StrategyExitMachine {
		t.Errorf("StrategyName = %s", d.StrategyName)
	}
}

func TestExitMachine_StopLossBeatsTakeProfit(t *testing.T) {
	m := newMachine(t)
	pos := openPosition()
	// 1.15 is below the stop and above the target at the same time.
	pos.StopLoss = ptr(1.2)
	pos.TakeProfit = ptr(1.1)

	exit := m.Evaluate(input(1.15, pos))

	if exit.Decision.Action != domain.ActionCutLoss {
		t.Fatalf("Action = %s, want CUT_LOSS", exit.Decision.Action)
	}
	if exit.Reason != domain.ExitReasonStopLoss {
		t.Errorf("Reason = %s, want %s", exit.Reason, domain.ExitReasonStopLoss)
	}
	if !almostEqual(exit.Decision.Confidence, 0.9) {
		t.Errorf("Confidence = %v, want 0.9", exit.Decision.Confidence)
	}
	if !almostEqual(exit.Decision.PositionSize, 2) {
		t.Errorf("PositionSize = %v, want 2", exit.Decision.PositionSize)
	}
}

func TestExitMachine_Rules(t *testing.T) {
	tests := []struct {
		name       string
		price      float64
		mutate     func(in *ExitInput)
		action     domain.Action
		reason     string
		confidence float64
		size       float64
	}{
		{
			name:       "stop loss",
			price:      0.9,
			mutate:     func(in *ExitInput) { in.Position.StopLoss = ptr(0.9) },
			action:     domain.ActionCutLoss,
			reason:     domain.ExitReasonStopLoss,
			confidence: 0.9,
			size:       2,
		},
		{
			name:       "take profit",
			price:      1.3,
			mutate:     func(in *ExitInput) { in.Position.TakeProfit = ptr(1.3) },
			action:     domain.ActionTakeProfit,
			reason:     domain.ExitReasonTakeProfit,
			confidence: 0.9,
			size:       2,
		},
		{
			name:       "severe loss",
			price:      0.75,
			action:     domain.ActionCutLoss,
			reason:     domain.ExitReasonSevereLoss,
			confidence: 0.85,
			size:       2,
		},
		{
			name:       "severe loss before failed risk",
			price:      0.7,
			mutate:     func(in *ExitInput) { in.Risk.Passes = false },
			action:     domain.ActionCutLoss,
			reason:     domain.ExitReasonSevereLoss,
			confidence: 0.85,
			size:       2,
		},
		{
			name:       "strong profit takes partial exit",
			price:      1.6,
			action:     domain.ActionTakeProfit,
			reason:     domain.ExitReasonStrongProfit,
			confidence: 0.8,
			size:       1.5,
		},
		{
			name:  "failed risk sells",
			price: 1.1,
			mutate: func(in *ExitInput) {
				in.Risk.Passes = false
				in.Risk.Reason = "Potential honeypot detected"
				in.AI.Recommendation = domain.RecommendationAvoid
			},
			action:     domain.ActionSell,
			reason:     domain.ExitReasonRiskFailed,
			confidence: 0.75,
			size:       2,
		},
		{
			name:       "AI avoid sells",
			price:      1.1,
			mutate:     func(in *ExitInput) { in.AI.Recommendation = domain.RecommendationAvoid },
			action:     domain.ActionSell,
			reason:     domain.ExitReasonAIAvoid,
			confidence: 0.7,
			size:       2,
		},
		{
			name:       "holding period with profit",
			price:      1.1,
			mutate:     func(in *ExitInput) { in.Position.EntryTime = now.Add(-200 * time.Hour) },
			action:     domain.ActionTakeProfit,
			reason:     domain.ExitReasonHoldingPeriod,
			confidence: 0.65,
			size:       2,
		},
		{
			name:  "custom holding period",
			price: 1.1,
			mutate: func(in *ExitInput) {
				in.Position.TargetHoldingPeriod = 24 * time.Hour
				in.Position.EntryTime = now.Add(-30 * time.Hour)
			},
			action:     domain.ActionTakeProfit,
			reason:     domain.ExitReasonHoldingPeriod,
			confidence: 0.65,
			size:       2,
		},
		{
			name:       "holding period at a loss holds",
			price:      0.9,
			mutate:     func(in *ExitInput) { in.Position.EntryTime = now.Add(-200 * time.Hour) },
			action:     domain.ActionHold,
			confidence: 0.6,
			size:       2,
		},
		{
			name:       "missing risk and AI holds",
			price:      1.1,
			mutate:     func(in *ExitInput) { in.Risk, in.AI = nil, nil },
			action:     domain.ActionHold,
			confidence: 0.6,
			size:       2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(tt.price, openPosition())
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			exit := newMachine(t).Evaluate(in)

			if exit.Decision.Action != tt.action {
				t.Fatalf("Action = %s, want %s (reasons %v)", exit.Decision.Action, tt.action, exit.Decision.Reasons)
			}
			if exit.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", exit.Reason, tt.reason)
			}
			if !almostEqual(exit.Decision.Confidence, tt.confidence) {
				t.Errorf("Confidence = %v, want %v", exit.Decision.Confidence, tt.confidence)
			}
			if !almostEqual(exit.Decision.PositionSize, tt.size) {
				t.Errorf("PositionSize = %v, want %v", exit.Decision.PositionSize, tt.size)
			}
		})
	}
}

func TestExitMachine_StrongProfitSetsRemainderTarget(t *testing.T) {
	exit := newMachine(t).Evaluate(input(1.6, openPosition()))

	if !almostEqual(exit.Fraction, 0.75) {
		t.Errorf("Fraction = %v, want 0.75", exit.Fraction)
	}
	if exit.Decision.PriceTarget == nil {
		t.Fatal("PriceTarget not set")
	}
	if !almostEqual(*exit.Decision.PriceTarget, 1.76) {
		t.Errorf("PriceTarget = %v, want 1.76", *exit.Decision.PriceTarget)
	}
}

func TestExitMachine_StrongProfitLeavesRemainderToTarget(t *testing.T) {
	m := newMachine(t)

	// After a 75% exit at 1.6 the remainder targets 1.76.
	pos := openPosition()
	pos.AmountIn = 0.5
	pos.AmountOut = 2.4
	pos.TakeProfit = ptr(1.76)

	exit := m.Evaluate(input(1.65, pos))
	if exit.Decision.Action != domain.ActionHold {
		t.Fatalf("Action = %s, want HOLD while below the remainder target", exit.Decision.Action)
	}

	exit = m.Evaluate(input(1.8, pos))
	if exit.Reason != domain.ExitReasonTakeProfit {
		t.Errorf("Reason = %q, want %q at the remainder target", exit.Reason, domain.ExitReasonTakeProfit)
	}

	// Without a remainder target the rule still fires.
	pos.TakeProfit = nil
	exit = m.Evaluate(input(1.65, pos))
	if exit.Reason != domain.ExitReasonStrongProfit {
		t.Errorf("Reason = %q, want %q without a remainder target", exit.Reason, domain.ExitReasonStrongProfit)
	}
}

func TestExitMachine_InsufficientPriceData(t *testing.T) {
	m := newMachine(t)

	noPrice := m.Evaluate(input(0, openPosition()))
	pos := openPosition()
	pos.EntryPrice = 0
	noEntry := m.Evaluate(input(1.2, pos))
	noPosition := m.Evaluate(input(1.2, nil))

	for name, exit := range map[string]Exit{"no price": noPrice, "no entry": noEntry, "no position": noPosition} {
		if exit.Decision.Action != domain.ActionHold {
			t.Errorf("%s: Action = %s, want HOLD", name, exit.Decision.Action)
		}
		if exit.Decision.Confidence > 0.5 {
			t.Errorf("%s: Confidence = %v, want <= 0.5", name, exit.Decision.Confidence)
		}
		if len(exit.Decision.Reasons) != 1 || exit.Decision.Reasons[0] != "Insufficient price data for exit evaluation" {
			t.Errorf("%s: Reasons = %v", name, exit.Decision.Reasons)
		}
	}
}

func TestExitMachine_RuleOrder(t *testing.T) {
	want := []string{
		RuleStopLoss, RuleTakeProfit, RuleSevereLoss, RuleStrongProfit,
		RuleRiskFailed, RuleAIAvoid, RuleHoldingPeriod,
	}
	if got := newMachine(t).Rules(); !reflect.DeepEqual(got, want) {
		t.Errorf("Rules() = %v, want %v", got, want)
	}
}

func TestExitSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *ExitSettings)
		want   error
	}{
		{"defaults", func(s *ExitSettings) {}, nil},
		{"positive severe loss", func(s *ExitSettings) { s.SevereLossPct = 5 }, ErrInvalidSevereLoss},
		{"zero strong profit", func(s *ExitSettings) { s.StrongProfitPct = 0 }, ErrInvalidStrongProfit},
		{"fraction above one", func(s *ExitSettings) { s.PartialExitFraction = 1.5 }, ErrInvalidFraction},
		{"zero fraction", func(s *ExitSettings) { s.PartialExitFraction = 0 }, ErrInvalidFraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultExitSettings()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewExitMachine(ExitSettings{}, nil); err == nil {
		t.Error("NewExitMachine accepted zero settings")
	}
}

func TestEntryLevels(t *testing.T) {
	tp, sl, err := EntryLevels(2.0, 30, 15)
	if err != nil {
		t.Fatalf("EntryLevels failed: %v", err)
	}
	if tp == nil || !almostEqual(*tp, 2.6) {
		t.Errorf("takeProfit = %v, want 2.6", tp)
	}
	if sl == nil || !almostEqual(*sl, 1.7) {
		t.Errorf("stopLoss = %v, want 1.7", sl)
	}

	tp, sl, err = EntryLevels(2.0, 0, 0)
	if err != nil || tp != nil || sl != nil {
		t.Errorf("zero percentages should leave levels unset, got %v %v %v", tp, sl, err)
	}

	if _, _, err := EntryLevels(2.0, 30, 100); !errors.Is(err, ErrInvalidLevelPct) {
		t.Errorf("EntryLevels(stop 100%%) err = %v", err)
	}
}
