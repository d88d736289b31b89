package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	address, name, symbol, liquidity_usd, volume_24h_usd, price_usd,
	market_cap_usd, holders, listed_at, fetched_at, source
`

// Upsert inserts the token or refreshes its latest snapshot.
// A known listing time is kept when the new snapshot lacks one.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.TokenSnapshot) (err error) {
	defer observe("tokens.upsert", time.Now(), &err)

	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			liquidity_usd = EXCLUDED.liquidity_usd,
			volume_24h_usd = EXCLUDED.volume_24h_usd,
			price_usd = EXCLUDED.price_usd,
			market_cap_usd = EXCLUDED.market_cap_usd,
			holders = EXCLUDED.holders,
			listed_at = COALESCE(EXCLUDED.listed_at, tokens.listed_at),
			fetched_at = EXCLUDED.fetched_at,
			source = EXCLUDED.source
	`

	_, err = s.pool.Exec(ctx, query,
		t.Address, t.Name, t.Symbol, t.LiquidityUSD, t.Volume24hUSD, t.PriceUSD,
		t.MarketCapUSD, t.Holders, nullTime(t.ListedAt), t.FetchedAt, t.Source,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (_ *domain.TokenSnapshot, err error) {
	defer observe("tokens.get", time.Now(), &err)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE address = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return t, nil
}

// ListRecent retrieves up to limit tokens, most recently fetched first.
func (s *TokenStore) ListRecent(ctx context.Context, limit int) (_ []*domain.TokenSnapshot, err error) {
	defer observe("tokens.list_recent", time.Now(), &err)

	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		ORDER BY fetched_at DESC, address ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TokenSnapshot
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

func scanToken(row pgx.Row) (*domain.TokenSnapshot, error) {
	var t domain.TokenSnapshot
	var listedAt *time.Time

	err := row.Scan(
		&t.Address, &t.Name, &t.Symbol, &t.LiquidityUSD, &t.Volume24hUSD, &t.PriceUSD,
		&t.MarketCapUSD, &t.Holders, &listedAt, &t.FetchedAt, &t.Source,
	)
	if err != nil {
		return nil, err
	}
	t.ListedAt = timeOrZero(listedAt)
	t.FetchedAt = t.FetchedAt.UTC()
	return &t, nil
}
