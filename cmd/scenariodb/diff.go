package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsedash/scenariodb/internal/diff"
	"github.com/dsedash/scenariodb/internal/usecase"
)

const cliSession = "cli"

func newDiffCmd() *cobra.Command {
	var (
		scenario  string
		tableName string
		dataPath  string
		prevPath  string
		storePath string
		timestamp int64
		keyed     bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two JSON snapshots of a table",
		Long: `Compare two JSON snapshots of a displayed table (arrays of row objects) and print the changed cells.
With --store the changes are recorded as one edit event in a pending change file that "apply" writes to the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataPath == "-" && prevPath == "-" {
				return errors.New("--data and --previous cannot both read stdin")
			}
			var data, previous []diff.Row
			if err := readJSON(cmd, dataPath, &data); err != nil {
				return err
			}
			if err := readJSON(cmd, prevPath, &previous); err != nil {
				return err
			}

			ctx := context.Background()
			e, err := openEnv(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				_ = e.Close()
			}()

			if storePath != "" {
				if err := loadStore(storePath, e.uc.PendingStore(cliSession)); err != nil {
					return err
				}
			}

			result, err := e.uc.CaptureDiff(usecase.CaptureInput{
				Session:   cliSession,
				Timestamp: timestamp,
				Scenario:  scenario,
				Table:     tableName,
				Data:      data,
				Previous:  previous,
				Keyed:     keyed,
			})
			if err != nil {
				return err
			}

			if storePath != "" {
				if err := saveStore(storePath, e.uc.PendingStore(cliSession)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d pending edit event(s) in %s\n", result.Pending, storePath)
			}
			if result.Inserted > 0 || result.Deleted > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "ignored %d inserted and %d deleted row(s)\n", result.Inserted, result.Deleted)
			}
			return outputJSON(cmd, result.Diffs)
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "Scenario the snapshots belong to")
	cmd.Flags().StringVar(&tableName, "table", "", "Table the snapshots show")
	cmd.Flags().StringVar(&dataPath, "data", "-", "JSON file with the table after the edit (- for stdin)")
	cmd.Flags().StringVar(&prevPath, "previous", "", "JSON file with the table before the edit")
	cmd.Flags().StringVar(&storePath, "store", "", "Pending change file to record the edit in")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Edit event time in unix milliseconds (default now, kept after the latest pending event)")
	cmd.Flags().BoolVar(&keyed, "keyed", false, "Match rows by index columns instead of position")
	_ = cmd.MarkFlagRequired("scenario")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("previous")

	return cmd
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		//nolint:gosec // G304: path is given on the command line
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadStore fills store from a pending change file. A missing file leaves
// the store empty.
func loadStore(path string, store *diff.Store) error {
	//nolint:gosec // G304: path is given on the command line
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, store); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func saveStore(path string, store *diff.Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
