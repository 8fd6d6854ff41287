package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classsync/classsync-api/internal/models"
)

func newAllowStudentCommand(deps Deps) *cobra.Command {
	return LeafCommand{
		Use:   "allow-student",
		Short: "Add a roll number to the registration allow list",
		Args:  cobra.NoArgs,
		StrFlags: []StringFlag{
			{Name: "roll", Usage: "roll number", Required: true},
			{Name: "name", Usage: "student's full name", Required: true},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			roll, _ := cmd.Flags().GetString("roll")
			name, _ := cmd.Flags().GetString("name")

			entries, err := deps.AllowList.Add(cmd.Context(), models.CreateAllowedStudentsRequest{
				Students: []models.AllowedStudentInput{{RollNumber: roll, FullName: name}},
			})
			if err != nil {
				return err
			}
			for _, entry := range entries {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "allowed %s %s\n", entry.RollNumber, entry.FullName)
			}
			return nil
		},
	}.Build()
}
