package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTableWriter(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

// cellWidth splits the terminal width evenly over columns, leaving room for
// borders and padding. Cells never get narrower than minWidth.
func cellWidth(termWidth, columns, minWidth int) int {
	if columns == 0 {
		return termWidth
	}
	width := (termWidth - columns*3 - 1) / columns
	if width < minWidth {
		return minWidth
	}
	return width
}

// formatCell renders a value for display, truncated to width display cells.
// go-pretty's WidthMax miscounts multi-byte characters, so truncation
// happens here.
func formatCell(v any, width int) string {
	var s string
	switch x := v.(type) {
	case nil:
		s = ""
	case float64:
		s = fmt.Sprintf("%g", x)
	default:
		s = fmt.Sprint(x)
	}
	return runewidth.Truncate(s, width, "...")
}

func validateFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}
