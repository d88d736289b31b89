package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, position_id, token_address, direction, action,
	amount_sol, token_amount, price_usd, signature, paper, executed_at
`

// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) (err error) {
	defer observe("trades.insert", time.Now(), &err)

	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		t.TradeID, t.PositionID, t.TokenAddress, string(t.Direction), string(t.Action),
		t.AmountSOL, t.TokenAmount, t.PriceUSD, t.Signature, t.Paper, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByPosition retrieves all trades of a position ordered by execution time.
func (s *TradeStore) GetByPosition(ctx context.Context, positionID string) (_ []*domain.TradeRecord, err error) {
	defer observe("trades.get_by_position", time.Now(), &err)

	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE position_id = $1
		ORDER BY executed_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("get trades by position: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListRecent retrieves up to limit trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) (_ []*domain.TradeRecord, err error) {
	defer observe("trades.list_recent", time.Now(), &err)

	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY executed_at DESC, trade_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// CountSince counts trades in direction executed at or after since.
func (s *TradeStore) CountSince(ctx context.Context, direction domain.TradeDirection, since time.Time) (_ int, err error) {
	defer observe("trades.count_since", time.Now(), &err)

	var n int
	query := `SELECT count(*) FROM trades WHERE direction = $1 AND executed_at >= $2`
	if err := s.pool.QueryRow(ctx, query, string(direction), since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return n, nil
}

// scanTrades scans multiple rows into a slice of TradeRecord.
func scanTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		var t domain.TradeRecord
		var direction, action string

		err := rows.Scan(
			&t.TradeID, &t.PositionID, &t.TokenAddress, &direction, &action,
			&t.AmountSOL, &t.TokenAmount, &t.PriceUSD, &t.Signature, &t.Paper, &t.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Direction = domain.TradeDirection(direction)
		t.Action = domain.Action(action)
		t.ExecutedAt = t.ExecutedAt.UTC()
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
