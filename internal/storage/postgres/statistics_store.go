package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// StatisticsStore implements storage.StatisticsStore using the bot_statistics table.
type StatisticsStore struct {
	pool *Pool
}

// NewStatisticsStore creates a new StatisticsStore.
func NewStatisticsStore(pool *Pool) *StatisticsStore {
	return &StatisticsStore{pool: pool}
}

var _ storage.StatisticsStore = (*StatisticsStore)(nil)

const statisticsColumns = `
	date, tokens_analyzed, trades_executed, successful_trades,
	failed_trades, total_profit_loss, runtime_hours, updated_at
`

// Increment adds delta to the counters of date's UTC day in a single upsert.
func (s *StatisticsStore) Increment(ctx context.Context, date time.Time, delta domain.StatsDelta) (_ *domain.DailyStatistics, err error) {
	defer observe("bot_statistics.increment", time.Now(), &err)

	query := `
		INSERT INTO bot_statistics (
			date, tokens_analyzed, trades_executed, successful_trades,
			failed_trades, total_profit_loss, runtime_hours, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (date) DO UPDATE SET
			tokens_analyzed = bot_statistics.tokens_analyzed + EXCLUDED.tokens_analyzed,
			trades_executed = bot_statistics.trades_executed + EXCLUDED.trades_executed,
			successful_trades = bot_statistics.successful_trades + EXCLUDED.successful_trades,
			failed_trades = bot_statistics.failed_trades + EXCLUDED.failed_trades,
			total_profit_loss = bot_statistics.total_profit_loss + EXCLUDED.total_profit_loss,
			runtime_hours = bot_statistics.runtime_hours + EXCLUDED.runtime_hours,
			updated_at = now()
		RETURNING ` + statisticsColumns

	st, err := scanStatistics(s.pool.QueryRow(ctx, query,
		storage.DayStart(date), delta.TokensAnalyzed, delta.TradesExecuted, delta.SuccessfulTrades,
		delta.FailedTrades, delta.ProfitLoss, delta.RuntimeHours,
	))
	if err != nil {
		return nil, fmt.Errorf("increment statistics: %w", err)
	}
	return st, nil
}

// Get retrieves the statistics of date's UTC day. Returns ErrNotFound if none.
func (s *StatisticsStore) Get(ctx context.Context, date time.Time) (_ *domain.DailyStatistics, err error) {
	defer observe("bot_statistics.get", time.Now(), &err)

	query := `SELECT ` + statisticsColumns + ` FROM bot_statistics WHERE date = $1`

	st, err := scanStatistics(s.pool.QueryRow(ctx, query, storage.DayStart(date)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return st, nil
}

// Range retrieves days within [from, to], ordered by date ASC.
func (s *StatisticsStore) Range(ctx context.Context, from, to time.Time) (_ []*domain.DailyStatistics, err error) {
	defer observe("bot_statistics.range", time.Now(), &err)

	query := `
		SELECT ` + statisticsColumns + `
		FROM bot_statistics
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, storage.DayStart(from), storage.DayStart(to))
	if err != nil {
		return nil, fmt.Errorf("get statistics range: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyStatistics
	for rows.Next() {
		st, err := scanStatistics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statistics row: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statistics rows: %w", err)
	}
	return result, nil
}

func scanStatistics(row pgx.Row) (*domain.DailyStatistics, error) {
	var st domain.DailyStatistics
	err := row.Scan(
		&st.Date, &st.TokensAnalyzed, &st.TradesExecuted, &st.SuccessfulTrades,
		&st.FailedTrades, &st.TotalProfitLoss, &st.RuntimeHours, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Date = storage.DayStart(st.Date)
	st.UpdatedAt = st.UpdatedAt.UTC()
	return &st, nil
}
