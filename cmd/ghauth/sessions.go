package main

import (
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List stored sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			host := newConsoleHost(cmd.OutOrStdout(), cmd.ErrOrStderr())
			a, err := newApp(ctx, configFrom(cmd), host)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			list, err := host.authProvider().GetSessions(ctx)
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), list, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json or yaml")
	return cmd
}
