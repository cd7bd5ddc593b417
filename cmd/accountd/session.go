package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
)

// sessionOutput is the printed form of a session.
type sessionOutput struct {
	Token   string            `json:"token"`
	Account *auth.AccountView `json:"account,omitempty"`
}

func newSessionOutput(s *auth.Session) sessionOutput {
	return sessionOutput{Token: s.ID, Account: s.Account}
}

// NewSessionCmd creates the session command group.
func NewSessionCmd(flags *rootFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, validate and end sessions",
	}

	var includeProfile bool
	cmd.PersistentFlags().BoolVar(&includeProfile, "include-profile", false, "include the account profile in the output")

	var username string
	create := &cobra.Command{
		Use:   "create",
		Short: "Authenticate and print a session token",
		Long: `Authenticate as the admin identity or a stored account. The password is read
from the terminal without echo, or as one line from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := deps.ReadPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
				session, err := a.resolver.CreateSession(ctx, username, password, includeProfile)
				if err != nil {
					return err
				}
				return printJSON(cmd, newSessionOutput(session))
			})
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "username to authenticate")
	_ = create.MarkFlagRequired("username") //nolint:errcheck // flag is defined above
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "find TOKEN",
		Short: "Validate a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
				session, err := a.resolver.FindSession(ctx, args[0], includeProfile)
				if err != nil {
					return err
				}
				return printJSON(cmd, newSessionOutput(session))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove TOKEN",
		Short: "End a session",
		Long: `Validate TOKEN and end the session. Without a revocation backend the token
stays valid until it expires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
				session, err := a.resolver.RemoveSession(ctx, args[0], includeProfile)
				if err != nil {
					return err
				}
				if session == nil {
					cmd.Println("Session removed")
					return nil
				}
				return printJSON(cmd, newSessionOutput(session))
			})
		},
	})

	return cmd
}
