package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDiffRejectsTwoStdinSnapshots(t *testing.T) {
	cmd := newDiffCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(`[{"product": "pear"}]`))
	cmd.SetArgs([]string{"--scenario", "Base", "--table", "Demand", "--previous", "-"})

	err := cmd.Execute()
	if err == nil {
		t.Fatalf("expected an error when both snapshots come from stdin")
	}
	if !strings.Contains(err.Error(), "stdin") {
		t.Fatalf("unexpected error: %v", err)
	}
}
