package domain

import "time"

// Action is the trading action chosen for a token.
type Action string

// Actions
const (
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionHold       Action = "HOLD"
	ActionTakeProfit Action = "TAKE_PROFIT"
	ActionCutLoss    Action = "CUT_LOSS"
	ActionNoAction   Action = "NO_ACTION"
)

// IsExit reports whether a closes or reduces an existing position.
func (a Action) IsExit() bool {
	return a == ActionSell || a == ActionTakeProfit || a == ActionCutLoss
}

// TradingDecision is produced once per evaluation and consumed by the executor and notifier.
// Corresponds to decisions table in PostgreSQL.
type TradingDecision struct {
	ID           string    // uuid
	TokenAddress string    // mint address
	TokenSymbol  string    // symbol for display
	Action       Action    // chosen action
	Confidence   float64   // [0,1]
	Reasons      []string  // ordered, most important first
	PositionSize float64   // SOL for entries, fraction-scaled size for exits, >= 0
	PriceTarget  *float64  // optional
	StopLoss     *float64  // optional
	Consensus    float64   // weighted consensus signal, [-1,1]
	TimeHorizon  string    // "short_term"
	StrategyName string    // producing strategy
	CreatedAt    time.Time // decision time
}

// Strategy names recorded on decisions.
const (
	StrategyConsensus   = "ai_consensus"
	StrategyExitMachine = "exit_state_machine"
)

// TimeHorizonShortTerm is the only horizon the bot trades on.
const TimeHorizonShortTerm = "short_term"

// NewTradingDecision builds a decision with bounded fields clamped.
func NewTradingDecision(token *TokenSnapshot, action Action, confidence float64, reasons []string, size float64, at time.Time) *TradingDecision {
	d := &TradingDecision{
		Action:       action,
		Confidence:   ClampUnit(confidence),
		Reasons:      append([]string(nil), reasons...),
		PositionSize: size,
		TimeHorizon:  TimeHorizonShortTerm,
		StrategyName: StrategyConsensus,
		CreatedAt:    at,
	}
	if d.PositionSize < 0 || d.PositionSize != d.PositionSize {
		d.PositionSize = 0
	}
	if token != nil {
		d.TokenAddress = token.Address
		d.TokenSymbol = token.Symbol
	}
	return d
}
