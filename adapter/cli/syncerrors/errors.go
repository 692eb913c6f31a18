// Package syncerrors implements the "errors" command group over the sync
// error ledger.
package syncerrors

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the errors command group
var Cmd = &cobra.Command{
	Use:   "errors",
	Short: "Triage the sync error ledger",
	Long:  `List sync errors, resolve or ignore them, and record retries.`,

	SilenceUsage: true,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(resolveCmd)
	Cmd.AddCommand(ignoreCmd)
	Cmd.AddCommand(retryCmd)
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sync error id %q", arg)
	}
	return id, nil
}
