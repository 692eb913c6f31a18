package syncerrors

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/worksync/adapter/cli"
	"github.com/felixgeelhaar/worksync/internal/ledger/application/queries"
	"github.com/spf13/cobra"
)

var (
	status   string
	syncType string
	limit    int
	offset   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync errors",
	Long: `List sync errors, most recent first.

Filter Options:
  --status   Filter by status (OPEN, RESOLVED, IGNORED)
  --type     Filter by sync type (ATTENDANCE_INGESTION, WORKER_SYNC, WORKER_DELETE, EXTERNAL_PULL)

Examples:
  worksync errors list --status open
  worksync errors list --type WORKER_SYNC --limit 50`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListErrorsHandler == nil {
			return cli.ErrNotInitialized
		}

		result, err := app.ListErrorsHandler.Handle(cmd.Context(), queries.ListErrorsQuery{
			Status:   status,
			SyncType: syncType,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return fmt.Errorf("failed to list sync errors: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, result)
		}

		if len(result.Errors) == 0 {
			fmt.Fprintln(out, "No sync errors found.")
			return nil
		}

		fmt.Fprintf(out, "Sync errors (%d of %d):\n", len(result.Errors), result.Total)
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "%s %s %s\n", statusIcon(e.Status), e.SyncType, e.ErrorMessage)
			fmt.Fprintf(out, "   ID: %s\n", e.ID)
			if e.SiteID != nil {
				fmt.Fprintf(out, "   Site: %s\n", *e.SiteID)
			}
			if e.ErrorCode != nil {
				fmt.Fprintf(out, "   Code: %s\n", *e.ErrorCode)
			}
			if e.RetryCount > 0 {
				fmt.Fprintf(out, "   Retries: %d\n", e.RetryCount)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func statusIcon(status string) string {
	switch status {
	case "RESOLVED":
		return "[x]"
	case "IGNORED":
		return "[-]"
	default:
		return "[ ]"
	}
}

func init() {
	listCmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (OPEN, RESOLVED, IGNORED)")
	listCmd.Flags().StringVarP(&syncType, "type", "t", "", "filter by sync type")
	listCmd.Flags().IntVarP(&limit, "limit", "n", queries.DefaultLimit, "max number of errors to show")
	listCmd.Flags().IntVar(&offset, "offset", 0, "number of errors to skip")
}
