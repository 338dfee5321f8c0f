package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"busroute-scraper/config"
	"busroute-scraper/storage"
	"busroute-scraper/utils"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "busroutes",
	Short:         "busroutes scrapes redbus bus routes into PostgreSQL and serves a search UI.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every subcommand uses.
func setup() (*config.Config, *utils.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger()
	logger.SetLevel(cfg.LogLevel)
	if logLevel != "" {
		logger.SetLevel(logLevel)
	}
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.PostgresStore, error) {
	store, err := storage.OpenPostgres(ctx, cfg.DSN(), cfg.TableName, logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running and POSTGRES_* is set")
		return nil, err
	}
	return store, nil
}
