// Package cli holds the counto command tree.
package cli

import (
	"context"
	"fmt"

	"counto/pkg/config"
	"counto/pkg/logger"
	"counto/pkg/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "counto",
	Short: "Conversational bookkeeping service",
	Long: `counto records income and expenses from chat messages, keeps a
customer and vendor ledger, and mirrors confirmed entries to Google Sheets,
Tally and Notion.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads configuration and the global logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.Get(), nil
}

func openPool(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (*pgxpool.Pool, error) {
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
