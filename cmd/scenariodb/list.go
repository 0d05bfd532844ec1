package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dsedash/scenariodb/internal/services"
)

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenarios with per-table row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			summaries, err := e.uc.Summaries(ctx)
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(cmd, listJSON(summaries))
			}
			outputSummaryTable(cmd, summaries)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

type listOutputEntry struct {
	Name   string           `json:"name"`
	Tables map[string]int64 `json:"tables"`
}

func listJSON(summaries []services.ScenarioSummary) []listOutputEntry {
	output := make([]listOutputEntry, 0, len(summaries))
	for _, s := range summaries {
		item := listOutputEntry{Name: s.Name, Tables: make(map[string]int64, len(s.Tables))}
		for _, tc := range s.Tables {
			item.Tables[tc.Table] = tc.Rows
		}
		output = append(output, item)
	}
	return output
}

func outputSummaryTable(cmd *cobra.Command, summaries []services.ScenarioSummary) {
	t := newTableWriter(cmd)
	if len(summaries) == 0 {
		t.AppendHeader(table.Row{"Scenario"})
		t.Render()
		return
	}

	// Headers shrink with the terminal; counts stay readable.
	columns := len(summaries[0].Tables) + 1
	width := cellWidth(getTerminalWidth(), columns, 6)

	header := table.Row{formatCell("Scenario", width)}
	for _, tc := range summaries[0].Tables {
		header = append(header, formatCell(tc.Table, width))
	}
	t.AppendHeader(header)

	for _, s := range summaries {
		row := table.Row{formatCell(s.Name, width)}
		for _, tc := range s.Tables {
			row = append(row, tc.Rows)
		}
		t.AppendRow(row)
	}
	t.Render()
}
