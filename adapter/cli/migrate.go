package cli

import (
	"fmt"

	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply pending PostgreSQL migrations from DATABASE_URL.

Local mode (SQLite) applies its schema on every start, so there is nothing
to do there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Config == nil {
			return ErrNotInitialized
		}
		out := cmd.OutOrStdout()

		if database.DetectDriver(app.Config.DatabaseURL) != database.DriverPostgres {
			fmt.Fprintln(out, "Local mode: SQLite schema is applied on startup.")
			return nil
		}

		applied, err := migrations.RunPostgresMigrations(cmd.Context(), app.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "Database is up to date.")
			return nil
		}
		for _, version := range applied {
			fmt.Fprintf(out, "Applied %s\n", version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
