package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
)

type accountUpdateFlags struct {
	id             string
	username       string
	changePassword bool
	profile        string
}

// NewAccountCmd creates the account command group. Every subcommand acts on
// the account behind a session token.
func NewAccountCmd(flags *rootFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Read and change the account behind a session",
	}

	var includeProfile bool
	cmd.PersistentFlags().BoolVar(&includeProfile, "include-profile", false, "include the profile in the output")

	cmd.AddCommand(&cobra.Command{
		Use:   "get TOKEN",
		Short: "Print the account behind a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
				view, err := a.resolver.GetAccount(ctx, args[0], includeProfile)
				if err != nil {
					return err
				}
				return printJSON(cmd, view)
			})
		},
	})

	uf := &accountUpdateFlags{}
	update := &cobra.Command{
		Use:   "update TOKEN",
		Short: "Change the account behind a session",
		Long: `Change the username, password or profile of the account behind TOKEN.
--id must name that account. A password change ends every existing session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := parseProfile(uf.profile)
			if err != nil {
				return err
			}
			change := auth.AccountChange{Username: uf.username, Profile: profile}
			if uf.changePassword {
				if change.Password, err = deps.ReadPassword(cmd, "New password: "); err != nil {
					return err
				}
				if change.Password == "" {
					return auth.ErrEmptyPassword
				}
			}

			return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
				view, err := a.resolver.UpdateAccount(ctx, args[0], uf.id, change, includeProfile)
				if err != nil {
					return err
				}
				return printJSON(cmd, view)
			})
		},
	}
	update.Flags().StringVar(&uf.id, "id", "", "id of the account behind the session")
	update.Flags().StringVarP(&uf.username, "username", "u", "", "new username")
	update.Flags().BoolVar(&uf.changePassword, "password", false, "prompt for a new password")
	update.Flags().StringVar(&uf.profile, "profile", "", "replacement profile as a JSON object")
	_ = update.MarkFlagRequired("id") //nolint:errcheck // flag is defined above
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove TOKEN",
		Short: "Delete the account behind a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
				view, err := a.resolver.RemoveAccount(ctx, args[0], includeProfile)
				if err != nil {
					return err
				}
				if view == nil {
					cmd.Println("Account removed")
					return nil
				}
				return printJSON(cmd, view)
			})
		},
	})

	return cmd
}
