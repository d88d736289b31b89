package domain

import "time"

// TradeDirection is the side of an executed swap.
type TradeDirection string

// Trade directions
const (
	DirectionBuy  TradeDirection = "BUY"
	DirectionSell TradeDirection = "SELL"
)

// TradeRecord represents an executed (or paper) swap.
// Corresponds to trades table in PostgreSQL.
type TradeRecord struct {
	TradeID      string         // deterministic hash
	PositionID   string         // position the trade opened or reduced
	TokenAddress string         // mint address
	Direction    TradeDirection // BUY | SELL
	Action       Action         // decision action that caused the trade
	AmountSOL    float64        // SOL spent (BUY) or received (SELL)
	TokenAmount  float64        // tokens received (BUY) or sold (SELL)
	PriceUSD     float64        // fill price in USD
	Signature    string         // transaction signature
	Paper        bool           // simulated fill
	ExecutedAt   time.Time      // fill time
}

// Exit reason codes
const (
	ExitReasonStopLoss      = "STOP_LOSS"
	ExitReasonTakeProfit    = "TAKE_PROFIT"
	ExitReasonSevereLoss    = "SEVERE_LOSS"
	ExitReasonStrongProfit  = "STRONG_PROFIT"
	ExitReasonRiskFailed    = "RISK_FAILED"
	ExitReasonAIAvoid       = "AI_AVOID"
	ExitReasonHoldingPeriod = "HOLDING_PERIOD"
)
