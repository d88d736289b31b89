package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"solana-token-trader/internal/storage/migrations"
	"solana-token-trader/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Long: `Migrate applies the embedded PostgreSQL schema and, when a ClickHouse DSN
is configured, creates the analytics database and tables. Migrations are
idempotent and safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickHouseDSN == "" {
		return errors.New("no database configured, set POSTGRES_DSN or CLICKHOUSE_DSN")
	}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		logger.Info().Msg("postgres migrations applied")
	}

	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		_ = conn.Close()
		logger.Info().Msg("clickhouse migrations applied")
	}
	return nil
}
