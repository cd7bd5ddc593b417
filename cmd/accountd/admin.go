package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
)

// NewAdminCmd creates the admin command group.
func NewAdminCmd(_ *rootFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative identity helpers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-password",
		Short: "Print an admin.password_hash record for a password",
		Long: `Derive PBKDF2 credentials for a password and print them in the
-pbkdf2-<derived>,<salt>,<iterations> form accepted by admin.password_hash.
The iteration count follows --iterations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iterations, err := cmd.Flags().GetInt("iterations")
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if iterations <= 0 {
				iterations = auth.DefaultIterations
			}

			password, err := deps.ReadPassword(cmd, "Admin password: ")
			if err != nil {
				return err
			}
			creds, err := auth.NewPBKDF2Hasher(iterations).Derive(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.FormatAdminHash(creds))
			return nil
		},
	})

	return cmd
}
