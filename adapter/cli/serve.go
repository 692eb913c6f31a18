package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync API server",
	Long: `Run the HTTP API that receives worker and attendance pushes from the
external system and serves the sync error ledger and status view.

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Server == nil {
			return ErrNotInitialized
		}
		ctx := cmd.Context()

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
