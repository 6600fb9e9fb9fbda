package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	apperrors "github.com/jrsteele09/github-authentication/internal/errors"
	"github.com/jrsteele09/github-authentication/oauthmodel"
)

func newLoginCmd() *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to GitHub in the browser",
		Long: `Opens the GitHub authorization page in the browser and waits for the
redirect. The session replaces any stored session with the same scopes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			host := newConsoleHost(cmd.OutOrStdout(), cmd.ErrOrStderr())
			a, err := newApp(ctx, configFrom(cmd), host)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.listen(ctx); err != nil {
				return err
			}

			displayAppname(cmd.ErrOrStderr(), a.cfg.GetAppName())
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", text.FgHiBlue.Sprint("Complete the sign in in your browser..."))

			session, err := host.authProvider().Login(ctx, scopes)
			if err != nil {
				if errors.Is(err, oauthmodel.ErrUserCancelledOrTimedOut) {
					return apperrors.Wrapf(err, "sign in not completed")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n",
				text.FgGreen.Sprint("Signed in as"),
				text.Bold.Sprint(session.AccountLabel),
				session.ID)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&scopes, "scope", "s", nil, "OAuth scope to request (repeatable)")
	return cmd
}
