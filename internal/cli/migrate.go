package cli

import (
	"counto/pkg/logger"
	"counto/pkg/postgres"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("down", false, "Revert all migrations instead of applying them")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	down, _ := cmd.Flags().GetBool("down")

	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := openPool(cmd.Context(), cfg, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.Migrate(db, down, appLogger)
}
