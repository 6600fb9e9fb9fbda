package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <session id>",
		Short: "Remove a stored session",
		Long:  "Removes the session with the given id. Removing an unknown id is not an error.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			host := newConsoleHost(cmd.OutOrStdout(), cmd.ErrOrStderr())
			a, err := newApp(ctx, configFrom(cmd), host)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := host.authProvider().Logout(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", text.FgGreen.Sprint("Signed out"), args[0])
			return nil
		},
	}
}
