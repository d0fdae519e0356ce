package cmd

import (
	"github.com/spf13/cobra"

	"messenger-service/internal/db"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer database.Close()
		return db.Migrate(database)
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the most recent database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer database.Close()
		return db.Rollback(database, rollbackSteps)
	},
}

func init() {
	rollbackCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to revert")
	migrateCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(migrateCmd)
}
