package storage

import (
	"context"
	"time"

	"solana-token-trader/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Upsert inserts the token or refreshes its latest snapshot.
	Upsert(ctx context.Context, t *domain.TokenSnapshot) error

	// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.TokenSnapshot, error)

	// ListRecent retrieves up to limit tokens, most recently fetched first.
	ListRecent(ctx context.Context, limit int) ([]*domain.TokenSnapshot, error)
}

// RiskAssessmentStore provides access to risk_assessments storage.
type RiskAssessmentStore interface {
	// Insert appends an assessment.
	Insert(ctx context.Context, a *domain.RiskAssessment) error

	// GetLatest retrieves the newest assessment for a token. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, address string) (*domain.RiskAssessment, error)
}

// AIAnalysisStore provides access to ai_analyses storage.
type AIAnalysisStore interface {
	// Insert appends an evaluation.
	Insert(ctx context.Context, e *domain.AIEvaluation) error

	// GetByToken retrieves up to limit evaluations for a token, newest first.
	GetByToken(ctx context.Context, address string, limit int) ([]*domain.AIEvaluation, error)
}

// DecisionStore provides access to decisions storage.
type DecisionStore interface {
	// Insert adds a decision. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, d *domain.TradingDecision) error

	// GetByID retrieves a decision. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TradingDecision, error)

	// ListRecent retrieves up to limit decisions, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.TradingDecision, error)
}

// PositionExit is an exit fill booked against a position.
type PositionExit struct {
	PriceUSD  float64   // fill price
	AmountOut float64   // SOL received
	CostBasis float64   // SOL of AmountIn closed, ignored by Close
	Reason    string    // exit reason code
	At        time.Time // fill time

	// TakeProfit replaces the target of a position that stays open, optional.
	TakeProfit *float64
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Open adds an open position. Returns ErrDuplicateKey if the ID exists
	// or the token already has an open position.
	Open(ctx context.Context, p *domain.Position) error

	// Close books a final exit and closes the position.
	// Returns ErrNotFound or ErrPositionClosed.
	Close(ctx context.Context, id string, exit PositionExit) (*domain.Position, error)

	// PartialClose books an exit that reduces the position. The position
	// closes if nothing remains. Returns ErrNotFound or ErrPositionClosed.
	PartialClose(ctx context.Context, id string, exit PositionExit) (*domain.Position, error)

	// GetOpen retrieves all open positions ordered by entry time.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetByID retrieves a position. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Position, error)

	// GetClosedSince retrieves positions closed at or after since, ordered by exit time.
	GetClosedSince(ctx context.Context, since time.Time) ([]*domain.Position, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a trade. Returns ErrDuplicateKey if the trade ID exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByPosition retrieves all trades of a position ordered by execution time.
	GetByPosition(ctx context.Context, positionID string) ([]*domain.TradeRecord, error)

	// ListRecent retrieves up to limit trades, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.TradeRecord, error)

	// CountSince counts trades in direction executed at or after since.
	CountSince(ctx context.Context, direction domain.TradeDirection, since time.Time) (int, error)
}

// PriceHistoryStore provides access to price_history storage.
type PriceHistoryStore interface {
	// Append adds points, skipping (token, timestamp) pairs already stored.
	Append(ctx context.Context, points []domain.PricePoint) error

	// GetRange retrieves points for a token within [start, end], ordered by timestamp ASC.
	GetRange(ctx context.Context, address string, start, end time.Time) ([]domain.PricePoint, error)
}

// StatisticsStore provides access to daily bot statistics.
type StatisticsStore interface {
	// Increment adds delta to the counters of date's UTC day, creating the row if needed.
	Increment(ctx context.Context, date time.Time, delta domain.StatsDelta) (*domain.DailyStatistics, error)

	// Get retrieves the statistics of date's UTC day. Returns ErrNotFound if none.
	Get(ctx context.Context, date time.Time) (*domain.DailyStatistics, error)

	// Range retrieves days within [from, to], ordered by date ASC.
	Range(ctx context.Context, from, to time.Time) ([]*domain.DailyStatistics, error)
}

// StatisticsSnapshotStore records point-in-time copies of daily statistics for analytics.
type StatisticsSnapshotStore interface {
	// Insert appends a snapshot.
	Insert(ctx context.Context, s *domain.DailyStatistics) error

	// GetByDate retrieves all snapshots of date's UTC day ordered by UpdatedAt.
	GetByDate(ctx context.Context, date time.Time) ([]*domain.DailyStatistics, error)
}

// Stores bundles the stores used by the trading loop.
// Snapshots may be nil when no analytics backend is configured.
type Stores struct {
	Tokens    TokenStore
	Risk      RiskAssessmentStore
	AI        AIAnalysisStore
	Decisions DecisionStore
	Positions PositionStore
	Trades    TradeStore
	Prices    PriceHistoryStore
	Stats     StatisticsStore
	Snapshots StatisticsSnapshotStore
}

// DayStart truncates t to its UTC midnight.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
