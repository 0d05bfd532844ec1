package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDuplicateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicate <source> [target]",
		Short: "Copy a scenario",
		Long:  "Copy every row of a scenario into a new one. Without a target the name is generated from the source, e.g. Base(1).",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			target := ""
			if len(args) == 2 {
				target = args[1]
			}

			ctx := context.Background()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				_ = e.Close()
			}()

			name, err := e.uc.Duplicate(ctx, source, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Duplicated '%s' as '%s'\n", source, name)
			return nil
		},
	}

	return cmd
}
