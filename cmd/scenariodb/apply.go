package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsedash/scenariodb/internal/diff"
)

func newApplyCmd() *cobra.Command {
	var (
		storePath   string
		updatesPath string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write pending cell edits to the store",
		Long: `Write cell edits to the store in one unit of work.
--store takes a pending change file written by "diff --store"; it is emptied once the edits are written.
--updates takes a JSON array of cell updates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (storePath == "") == (updatesPath == "") {
				return errors.New("exactly one of --store or --updates is required")
			}

			var updates []diff.DbCellUpdate
			if updatesPath != "" {
				if err := readJSON(cmd, updatesPath, &updates); err != nil {
					return err
				}
			}

			ctx := context.Background()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				_ = e.Close()
			}()

			if updatesPath != "" {
				n, err := e.uc.ApplyUpdates(ctx, updates)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d cell(s)\n", n)
				return nil
			}

			store := e.uc.PendingStore(cliSession)
			if err := loadStore(storePath, store); err != nil {
				return err
			}
			n, err := e.uc.Commit(ctx, cliSession)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending changes")
				return nil
			}
			if err := saveStore(storePath, store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d change(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "Pending change file written by diff --store")
	cmd.Flags().StringVar(&updatesPath, "updates", "", "JSON file with cell updates (- for stdin)")
	return cmd
}
