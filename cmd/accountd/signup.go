package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
)

type signupFlags struct {
	username       string
	id             string
	roles          []string
	profile        string
	includeProfile bool
}

// NewSignupCmd creates the signup subcommand.
func NewSignupCmd(flags *rootFlags, deps *Deps) *cobra.Command {
	sf := &signupFlags{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a stored account",
		Long: `Create an account and print its projection. The password is read from the
terminal without echo, or as one line from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignup(cmd, flags, deps, sf)
		},
	}

	cmd.Flags().StringVarP(&sf.username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&sf.id, "id", "", "account id (default: generated)")
	cmd.Flags().StringSliceVar(&sf.roles, "role", nil, "additional role (repeatable)")
	cmd.Flags().StringVar(&sf.profile, "profile", "", "profile as a JSON object")
	cmd.Flags().BoolVar(&sf.includeProfile, "include-profile", false, "include the profile in the output")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag is defined above

	return cmd
}

func runSignup(cmd *cobra.Command, flags *rootFlags, deps *Deps, sf *signupFlags) error {
	profile, err := parseProfile(sf.profile)
	if err != nil {
		return err
	}
	password, err := deps.ReadPassword(cmd, "Password: ")
	if err != nil {
		return err
	}

	return withApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		view, err := a.resolver.SignUp(ctx, auth.AccountProperties{
			ID:       sf.id,
			Username: sf.username,
			Password: password,
			Roles:    sf.roles,
			Profile:  profile,
		}, sf.includeProfile)
		if err != nil {
			return err
		}
		return printJSON(cmd, view)
	})
}
