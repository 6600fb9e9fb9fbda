package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/github-authentication/internal/config"
	"github.com/jrsteele09/github-authentication/internal/logging"
)

type configKey struct{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ghauth",
		Short: "Sign in to GitHub and manage the stored sessions",
		Long: `ghauth signs in to GitHub with the OAuth authorization code flow and keeps
one session per set of scopes.

Configuration comes from GHAUTH_* environment variables; GHAUTH_CLIENT_ID
is required to sign in.

Examples:
  ghauth login                          # Sign in with the user:email scope
  ghauth login --scope repo --scope gist
  ghauth sessions -o yaml               # List stored sessions
  ghauth logout <session id>            # Remove a session`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.GetLogLevel(), cfg.GetEnv(), cmd.ErrOrStderr()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}

	root.AddCommand(newLoginCmd(), newLogoutCmd(), newSessionsCmd())
	return root
}

func configFrom(cmd *cobra.Command) config.Config {
	cfg, _ := cmd.Context().Value(configKey{}).(config.Config)
	return cfg
}
