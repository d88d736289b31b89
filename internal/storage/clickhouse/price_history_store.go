package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

type priceKey struct {
	address     string
	timestampMs int64
}

// Append adds points, skipping (token, timestamp) pairs already stored or
// repeated within the batch. The table is a ReplacingMergeTree, so a racing
// writer still collapses to one row after merge; reads use FINAL.
func (s *PriceHistoryStore) Append(ctx context.Context, points []domain.PricePoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer observe("price_history.append", time.Now(), &err)

	seen := make(map[priceKey]struct{}, len(points))
	byToken := make(map[string][]domain.PricePoint)
	for _, p := range points {
		k := priceKey{p.TokenAddress, p.Timestamp.UnixMilli()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		byToken[p.TokenAddress] = append(byToken[p.TokenAddress], p)
	}

	var fresh []domain.PricePoint
	for address, pts := range byToken {
		existing, err := s.existing(ctx, address, pts)
		if err != nil {
			return fmt.Errorf("check existing: %w", err)
		}
		for _, p := range pts {
			if _, ok := existing[p.Timestamp.UnixMilli()]; !ok {
				fresh = append(fresh, p)
			}
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (token_address, timestamp_ms, price_usd)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range fresh {
		if err = batch.Append(p.TokenAddress, uint64(p.Timestamp.UnixMilli()), p.PriceUSD); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// existing returns the stored timestamps of address within the span of pts.
func (s *PriceHistoryStore) existing(ctx context.Context, address string, pts []domain.PricePoint) (map[int64]struct{}, error) {
	lo, hi := pts[0].Timestamp.UnixMilli(), pts[0].Timestamp.UnixMilli()
	for _, p := range pts[1:] {
		ms := p.Timestamp.UnixMilli()
		if ms < lo {
			lo = ms
		}
		if ms > hi {
			hi = ms
		}
	}

	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT timestamp_ms FROM price_history
		WHERE token_address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`, address, uint64(lo), uint64(hi))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var ms uint64
		if err := rows.Scan(&ms); err != nil {
			return nil, err
		}
		out[int64(ms)] = struct{}{}
	}
	return out, rows.Err()
}

// GetRange retrieves points for a token within [start, end], ordered by timestamp ASC.
func (s *PriceHistoryStore) GetRange(ctx context.Context, address string, start, end time.Time) (_ []domain.PricePoint, err error) {
	defer observe("price_history.get_range", time.Now(), &err)

	query := `
		SELECT token_address, timestamp_ms, price_usd
		FROM price_history FINAL
		WHERE token_address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, address, uint64(start.UnixMilli()), uint64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query price range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

func scanPricePoints(rows chRows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var timestampMs uint64

		if err := rows.Scan(&p.TokenAddress, &timestampMs, &p.PriceUSD); err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}

		p.Timestamp = time.UnixMilli(int64(timestampMs)).UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}

	return points, nil
}
