package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classsync/classsync-api/internal/service"
)

var errPasswordMismatch = errors.New("passwords do not match")

func newCreateAdminCommand(deps Deps) *cobra.Command {
	return LeafCommand{
		Use:   "create-admin",
		Short: "Create an administrator account; the password is prompted",
		Args:  cobra.NoArgs,
		StrFlags: []StringFlag{
			{Name: "email", Usage: "login email", Required: true},
			{Name: "name", Usage: "full name", Required: true},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")

			password, err := promptPassword(cmd, deps.ReadPassword)
			if err != nil {
				return err
			}

			user, err := deps.Admins.CreateAdmin(cmd.Context(), service.CreateAdminRequest{
				Email:    email,
				FullName: name,
				Password: password,
			}, "")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}.Build()
}

func promptPassword(cmd *cobra.Command, read func() ([]byte, error)) (string, error) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, "Password: ")
	first, err := read()
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	_, _ = fmt.Fprint(out, "Confirm password: ")
	second, err := read()
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}
