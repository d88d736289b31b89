// Package migrations applies the embedded schema to PostgreSQL and
// ClickHouse. Every schema statement is idempotent, so running it twice is
// harmless.
package migrations

import (
	"context"
	"fmt"

	"solana-token-trader/internal/storage/postgres"
	"solana-token-trader/internal/storage/schema"
)

// RunPostgresMigrations applies the relational schema. Postgres accepts a
// whole file in one Exec.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := schema.Files(schema.Postgres)
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := pool.Exec(ctx, f.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.Name, err)
		}
	}
	return nil
}
