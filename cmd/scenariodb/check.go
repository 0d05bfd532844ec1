package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the store has every table and column of the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				_ = e.Close()
			}()

			if err := e.uc.VerifySchema(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Store matches schema (%d tables)\n", len(e.uc.Schema().Tables()))
			return nil
		},
	}
}
