package syncerrors

import (
	"fmt"

	"github.com/felixgeelhaar/worksync/adapter/cli"
	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Record a retry attempt for a sync error",
	Long: `Increment the retry count of a sync error.

The ledger does not re-run anything itself; call this after retrying the
failed operation by other means.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.IncrementRetryHandler == nil {
			return cli.ErrNotInitialized
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		count, err := app.IncrementRetryHandler.Handle(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to record retry: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sync error %s retry count: %d\n", id, count)
		return nil
	},
}
