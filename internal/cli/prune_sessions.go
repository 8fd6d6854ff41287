package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPruneSessionsCommand(deps Deps) *cobra.Command {
	return LeafCommand{
		Use:   "prune-sessions",
		Short: "Delete refresh sessions that expired or were revoked before a retention window",
		Args:  cobra.NoArgs,
		IntFlags: []IntFlag{
			{Name: "days", Usage: "keep sessions touched within this many days", Default: 30},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			// Revoked rows are kept for a while so a replayed token is
			// still recognised as reuse.
			cutoff := deps.Now().Add(-time.Duration(days) * 24 * time.Hour)
			n, err := deps.Sessions.DeleteExpired(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d sessions older than %s\n", n, cutoff.Format(time.RFC3339))
			return nil
		},
	}.Build()
}
