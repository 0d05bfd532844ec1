package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <scenario> <table>",
		Short: "Show the rows of a table for a scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
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

			data, err := e.uc.ReadTable(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(cmd, data.Rows)
			}

			width := cellWidth(getTerminalWidth(), len(data.Columns), 8)
			t := newTableWriter(cmd)
			header := make(table.Row, 0, len(data.Columns))
			for _, c := range data.Columns {
				header = append(header, formatCell(c, width))
			}
			t.AppendHeader(header)
			for _, r := range data.Rows {
				row := make(table.Row, 0, len(data.Columns))
				for _, c := range data.Columns {
					row = append(row, formatCell(r[c], width))
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}
