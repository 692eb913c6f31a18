package syncerrors

import (
	"fmt"

	"github.com/felixgeelhaar/worksync/adapter/cli"
	"github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark a sync error as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition(cmd, args[0], domain.StatusResolved)
	},
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore <id>",
	Short: "Mark a sync error as ignored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition(cmd, args[0], domain.StatusIgnored)
	},
}

func transition(cmd *cobra.Command, arg string, status domain.Status) error {
	app := cli.GetApp()
	if app == nil || app.UpdateStatusHandler == nil {
		return cli.ErrNotInitialized
	}
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	err = app.UpdateStatusHandler.Handle(cmd.Context(), commands.UpdateStatusCommand{
		ID:     id,
		Status: string(status),
	})
	if err != nil {
		return fmt.Errorf("failed to update sync error: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sync error %s is %s\n", id, status)
	return nil
}
