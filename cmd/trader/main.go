// Command trader runs the Solana new-token trading bot.
//
// Usage:
//
//	trader run [--config config.yaml] [--no-feed]
//	trader assess <mint address> [--format markdown|json]
//	trader migrate
//	trader config
//
// Configuration is read from the YAML file, then .env, then the environment.
// Global flags override the result.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"solana-token-trader/internal/config"
	"solana-token-trader/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	storage    string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Solana new-token trading bot",
	Long: `trader evaluates newly listed Solana tokens, scores their risk, fuses AI,
sentiment and market signals into a trading decision and manages open
positions with a priority-ordered exit machine.`,
	SilenceUsage: true,
}

func init() {
	bindGlobalFlags(rootCmd.PersistentFlags(), &flags)
	rootCmd.AddCommand(runCmd, assessCmd, migrateCmd, configCmd)
}

func bindGlobalFlags(fs *pflag.FlagSet, f *globalFlags) {
	fs.StringVarP(&f.configPath, "config", "c", "", "path to YAML config file")
	fs.StringVar(&f.envFile, "env-file", ".env", "path to .env file, missing file is ignored")
	fs.StringVar(&f.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format override (json, console)")
	fs.StringVar(&f.storage, "storage", "", "storage mode override (memory, postgres)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if flags.storage != "" {
		cfg.Storage.Mode = flags.storage
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format).With().Str("service", "trader").Logger()
}
