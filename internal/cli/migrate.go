package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCommands = map[string]bool{
	"up":        true,
	"up-by-one": true,
	"up-to":     true,
	"down":      true,
	"down-to":   true,
	"redo":      true,
	"reset":     true,
	"status":    true,
	"version":   true,
}

func newMigrateCommand(deps Deps) *cobra.Command {
	return LeafCommand{
		Use:   "migrate COMMAND [VERSION]",
		Short: "Apply or inspect database migrations (up, down, status, version, ...)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := args[0]
			if !migrateCommands[command] {
				return fmt.Errorf("%q: no such migrate command", command)
			}
			if (command == "up-to" || command == "down-to") && len(args) != 2 {
				return fmt.Errorf("%s requires a target VERSION", command)
			}
			if err := deps.Migrate(cmd.Context(), command, args[1:]...); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", command)
			return nil
		},
	}.Build()
}
