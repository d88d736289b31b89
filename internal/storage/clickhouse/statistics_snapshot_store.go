package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// StatisticsSnapshotStore implements storage.StatisticsSnapshotStore using ClickHouse.
type StatisticsSnapshotStore struct {
	conn *Conn
}

// NewStatisticsSnapshotStore creates a new StatisticsSnapshotStore.
func NewStatisticsSnapshotStore(conn *Conn) *StatisticsSnapshotStore {
	return &StatisticsSnapshotStore{conn: conn}
}

var _ storage.StatisticsSnapshotStore = (*StatisticsSnapshotStore)(nil)

// Insert appends a snapshot. A zero UpdatedAt is stamped with the current time.
func (s *StatisticsSnapshotStore) Insert(ctx context.Context, st *domain.DailyStatistics) (err error) {
	if st == nil {
		return storage.ErrInvalidInput
	}
	defer observe("statistics_snapshots.insert", time.Now(), &err)

	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO statistics_snapshots (
			date, tokens_analyzed, trades_executed, successful_trades,
			failed_trades, total_profit_loss, runtime_hours, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		storage.DayStart(st.Date), uint32(st.TokensAnalyzed), uint32(st.TradesExecuted),
		uint32(st.SuccessfulTrades), uint32(st.FailedTrades),
		st.TotalProfitLoss, st.RuntimeHours, updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert statistics snapshot: %w", err)
	}
	return nil
}

// GetByDate retrieves all snapshots of date's UTC day ordered by UpdatedAt.
func (s *StatisticsSnapshotStore) GetByDate(ctx context.Context, date time.Time) (_ []*domain.DailyStatistics, err error) {
	defer observe("statistics_snapshots.get_by_date", time.Now(), &err)

	query := `
		SELECT date, tokens_analyzed, trades_executed, successful_trades,
			failed_trades, total_profit_loss, runtime_hours, updated_at
		FROM statistics_snapshots
		WHERE date = ?
		ORDER BY updated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, storage.DayStart(date))
	if err != nil {
		return nil, fmt.Errorf("query snapshots by date: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows chRows) ([]*domain.DailyStatistics, error) {
	var out []*domain.DailyStatistics

	for rows.Next() {
		var st domain.DailyStatistics
		var analyzed, executed, successful, failed uint32

		err := rows.Scan(
			&st.Date, &analyzed, &executed, &successful,
			&failed, &st.TotalProfitLoss, &st.RuntimeHours, &st.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan statistics snapshot row: %w", err)
		}

		st.Date = storage.DayStart(st.Date)
		st.UpdatedAt = st.UpdatedAt.UTC()
		st.TokensAnalyzed = int(analyzed)
		st.TradesExecuted = int(executed)
		st.SuccessfulTrades = int(successful)
		st.FailedTrades = int(failed)
		out = append(out, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statistics snapshot rows: %w", err)
	}

	return out, nil
}
