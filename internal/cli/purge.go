package cli

import (
	"fmt"
	"time"

	"counto/internal/repository"
	"counto/internal/service"
	"counto/pkg/logger"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(purgePendingCmd)
	purgePendingCmd.Flags().Duration("older-than", 0, "Age threshold (defaults to PENDING_TTL)")
}

var purgePendingCmd = &cobra.Command{
	Use:   "purge-pending",
	Short: "Delete pending transactions that were never confirmed",
	RunE:  runPurgePending,
}

func runPurgePending(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if olderThan <= 0 {
		olderThan = cfg.Staging.PendingTTL
	}

	db, err := openPool(cmd.Context(), cfg, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	staging := service.NewStagingService(repository.NewLedger(db, appLogger), cfg.Parsing, cfg.Staging, appLogger)
	n, err := staging.PurgeExpired(cmd.Context(), olderThan)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d pending transaction(s) older than %s\n", n, olderThan.Round(time.Second))
	return nil
}
