package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pullSites []string

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull workers and attendance from the external system",
	Long: `Fetch workers and attendance from the external system for each site and
feed them through the worker reconciler and the ingestion pipeline.

Sites default to FAS_SITES. A failing site is recorded in the sync error
ledger and the remaining sites are still pulled; the command then exits
non-zero.

Examples:
  worksync pull --site S1 --site S2
  worksync pull --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return ErrNotInitialized
		}
		if app.Puller == nil {
			return fmt.Errorf("external system not configured - set FAS_BASE_URL")
		}

		sites := pullSites
		if len(sites) == 0 && app.Config != nil {
			sites = app.Config.FASSites
		}

		result, err := app.Puller.Pull(cmd.Context(), sites)
		if err != nil {
			return fmt.Errorf("failed to pull: %w", err)
		}

		out := cmd.OutOrStdout()
		if JSONOutput() {
			if err := PrintJSON(out, result); err != nil {
				return err
			}
		} else {
			for _, site := range result.Sites {
				if site.Error != "" {
					fmt.Fprintf(out, "[!] %s: %s\n", site.SiteID, site.Error)
					continue
				}
				fmt.Fprintf(out, "[x] %s\n", site.SiteID)
				if site.Workers != nil {
					fmt.Fprintf(out, "   Workers: %d created, %d updated, %d failed\n",
						site.Workers.Created, site.Workers.Updated, site.Workers.Failed)
				}
				if site.Attendance != nil {
					fmt.Fprintf(out, "   Attendance: %d inserted, %d skipped, %d failed\n",
						site.Attendance.Inserted, site.Attendance.Skipped, site.Attendance.Failed)
				}
			}
		}

		if result.Failed > 0 {
			return fmt.Errorf("%d of %d sites failed", result.Failed, len(result.Sites))
		}
		return nil
	},
}

func init() {
	pullCmd.Flags().StringArrayVar(&pullSites, "site", nil, "site to pull (repeatable)")
	rootCmd.AddCommand(pullCmd)
}
