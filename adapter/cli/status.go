package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show synchronization health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.SyncStatusHandler == nil {
			return ErrNotInitialized
		}

		snapshot := app.SyncStatusHandler.Handle(cmd.Context())
		out := cmd.OutOrStdout()
		if JSONOutput() {
			return PrintJSON(out, snapshot)
		}

		fasStatus := "up"
		if snapshot.FASStatus != nil {
			fasStatus = *snapshot.FASStatus
		}
		lastFullSync := "never"
		if snapshot.LastFullSync != nil {
			lastFullSync = snapshot.LastFullSync.Format(time.RFC3339)
		}

		fmt.Fprintf(out, "External system: %s\n", fasStatus)
		fmt.Fprintf(out, "Last full sync:  %s\n", lastFullSync)
		fmt.Fprintf(out, "Workers:         %d total, %d linked, %d missing phone\n",
			snapshot.UserStats.Total, snapshot.UserStats.Linked, snapshot.UserStats.MissingPhone)
		fmt.Fprintf(out, "Sync errors:     %d open, %d resolved, %d ignored\n",
			snapshot.SyncErrorCounts.Open, snapshot.SyncErrorCounts.Resolved, snapshot.SyncErrorCounts.Ignored)

		if len(snapshot.RecentSyncLogs) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Recent sync logs:")
		for _, log := range snapshot.RecentSyncLogs {
			fmt.Fprintf(out, "  %s  %-18s %s\n", log.CreatedAt.Format(time.RFC3339), log.Action, log.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
