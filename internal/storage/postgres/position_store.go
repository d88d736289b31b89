package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	id, token_address, token_symbol, entry_price, entry_time, amount_in,
	stop_loss, take_profit, holding_period_seconds, status, entry_signature,
	exit_price, exit_time, amount_out, profit_loss, profit_loss_pct, exit_reason
`

// Open adds an open position. The partial unique index on open positions
// rejects a second open position for the same token.
func (s *PositionStore) Open(ctx context.Context, p *domain.Position) (err error) {
	defer observe("positions.open", time.Now(), &err)

	if p == nil || p.ID == "" || p.TokenAddress == "" || p.AmountIn <= 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, NULL, 0, 0, 0, '')
	`

	_, err = s.pool.Exec(ctx, query,
		p.ID, p.TokenAddress, p.TokenSymbol, p.EntryPrice, p.EntryTime, p.AmountIn,
		p.StopLoss, p.TakeProfit, int64(p.TargetHoldingPeriod/time.Second), string(domain.PositionOpen), p.EntrySignature,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("open position: %w", err)
	}
	return nil
}

// Close books a final exit and closes the position.
func (s *PositionStore) Close(ctx context.Context, id string, exit storage.PositionExit) (_ *domain.Position, err error) {
	defer observe("positions.close", time.Now(), &err)
	return s.applyExit(ctx, id, exit, true)
}

// PartialClose books an exit that reduces the position.
func (s *PositionStore) PartialClose(ctx context.Context, id string, exit storage.PositionExit) (_ *domain.Position, err error) {
	defer observe("positions.partial_close", time.Now(), &err)

	if exit.CostBasis <= 0 {
		return nil, storage.ErrInvalidInput
	}
	return s.applyExit(ctx, id, exit, false)
}

// applyExit locks the row, books the exit and writes the result back in one transaction.
func (s *PositionStore) applyExit(ctx context.Context, id string, exit storage.PositionExit, final bool) (*domain.Position, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1 FOR UPDATE`
	p, err := scanPosition(tx.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lock position: %w", err)
	}
	if p.Status == domain.PositionClosed {
		return nil, storage.ErrPositionClosed
	}

	p.ApplyExit(exit.PriceUSD, exit.AmountOut, exit.CostBasis, exit.Reason, exit.At, final)
	if exit.TakeProfit != nil && p.Status == domain.PositionOpen {
		p.TakeProfit = exit.TakeProfit
	}

	update := `
		UPDATE positions SET
			amount_in = $2, status = $3, exit_price = $4, exit_time = $5,
			amount_out = $6, profit_loss = $7, profit_loss_pct = $8, exit_reason = $9,
			take_profit = $10
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		p.ID, p.AmountIn, string(p.Status), p.ExitPrice, p.ExitTime,
		p.AmountOut, p.ProfitLoss, p.ProfitLossPct, p.ExitReason,
		p.TakeProfit,
	)
	if err != nil {
		return nil, fmt.Errorf("update position: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

// GetOpen retrieves all open positions ordered by entry time.
func (s *PositionStore) GetOpen(ctx context.Context) (_ []*domain.Position, err error) {
	defer observe("positions.get_open", time.Now(), &err)

	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY entry_time ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByID retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, id string) (_ *domain.Position, err error) {
	defer observe("positions.get", time.Now(), &err)

	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetClosedSince retrieves positions closed at or after since, ordered by exit time.
func (s *PositionStore) GetClosedSince(ctx context.Context, since time.Time) (_ []*domain.Position, err error) {
	defer observe("positions.get_closed_since", time.Now(), &err)

	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1 AND exit_time >= $2
		ORDER BY exit_time ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.PositionClosed), since)
	if err != nil {
		return nil, fmt.Errorf("get closed positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string
	var holdingSeconds int64

	err := row.Scan(
		&p.ID, &p.TokenAddress, &p.TokenSymbol, &p.EntryPrice, &p.EntryTime, &p.AmountIn,
		&p.StopLoss, &p.TakeProfit, &holdingSeconds, &status, &p.EntrySignature,
		&p.ExitPrice, &p.ExitTime, &p.AmountOut, &p.ProfitLoss, &p.ProfitLossPct, &p.ExitReason,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PositionStatus(status)
	p.TargetHoldingPeriod = time.Duration(holdingSeconds) * time.Second
	p.EntryTime = p.EntryTime.UTC()
	if p.ExitTime != nil {
		t := p.ExitTime.UTC()
		p.ExitTime = &t
	}
	return &p, nil
}

func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}
