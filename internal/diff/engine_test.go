package diff

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func demandRows() []Row {
	return []Row{
		{"product": "apple", "customer": "acme", "demand": 10.0},
		{"product": "pear", "customer": "acme", "demand": 5.0},
	}
}

func TestComputeSingleChange(t *testing.T) {
	previous := demandRows()
	data := demandRows()
	data[1]["demand"] = 7.0

	got, err := Compute(data, previous, Options{
		IndexColumns: []string{"product", "customer"},
		TableName:    "demand",
		ScenarioName: "base",
	})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	want := []CellDiff{{
		ScenarioName: "base",
		TableName:    "demand",
		ColumnName:   "demand",
		RowIdx:       1,
		RowIndex: []KeyValue{
			{Column: "product", Value: "pear"},
			{Column: "customer", Value: "acme"},
		},
		CurrentValue:  7.0,
		PreviousValue: 5.0,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected diffs (-want +got):\n%s", diff)
	}
}

func TestComputeIdenticalSnapshots(t *testing.T) {
	got, err := Compute(demandRows(), demandRows(), Options{IndexColumns: []string{"product", "customer"}})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no diffs, got %d", len(got))
	}
}

func TestComputeEmptyInput(t *testing.T) {
	got, err := Compute(nil, demandRows(), Options{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil diffs for empty input, got %v", got)
	}
}

func TestComputeMissingValues(t *testing.T) {
	previous := []Row{
		{"param": "a", "value": nil},
		{"param": "b", "value": math.NaN()},
		{"param": "c", "value": nil},
	}
	data := []Row{
		{"param": "a", "value": math.NaN()},
		{"param": "b", "value": nil},
		{"param": "c", "value": 3.0},
	}

	got, err := Compute(data, previous, Options{IndexColumns: []string{"param"}})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one diff, got %d: %v", len(got), got)
	}
	if got[0].RowIdx != 2 || got[0].CurrentValue != 3.0 || got[0].PreviousValue != nil {
		t.Fatalf("unexpected diff: %+v", got[0])
	}
}

func TestComputeNumericTypes(t *testing.T) {
	previous := []Row{{"param": "a", "value": int64(3)}}
	data := []Row{{"param": "a", "value": 3.0}}

	got, err := Compute(data, previous, Options{IndexColumns: []string{"param"}})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected int64 and float64 of equal value to compare equal, got %v", got)
	}
}

func TestComputeColumnOrder(t *testing.T) {
	previous := []Row{{"k": "x", "b": 1.0, "a": 1.0}}
	data := []Row{{"k": "x", "b": 2.0, "a": 2.0}}

	got, err := Compute(data, previous, Options{IndexColumns: []string{"k"}, Columns: []string{"k", "b", "a"}})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	var columns []string
	for _, d := range got {
		columns = append(columns, d.ColumnName)
	}
	if diff := cmp.Diff([]string{"b", "a"}, columns); diff != "" {
		t.Fatalf("unexpected column order (-want +got):\n%s", diff)
	}

	got, err = Compute(data, previous, Options{IndexColumns: []string{"k"}})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	columns = columns[:0]
	for _, d := range got {
		columns = append(columns, d.ColumnName)
	}
	if diff := cmp.Diff([]string{"a", "b"}, columns); diff != "" {
		t.Fatalf("expected sorted columns (-want +got):\n%s", diff)
	}
}

func TestComputeWithoutIndexUsesAllColumns(t *testing.T) {
	previous := []Row{{"name": "profit", "value": 1.0}}
	data := []Row{{"name": "profit", "value": 2.0}}

	got, err := Compute(data, previous, Options{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one diff, got %d", len(got))
	}
	want := []KeyValue{{Column: "name", Value: "profit"}, {Column: "value", Value: 1.0}}
	if diff := cmp.Diff(want, got[0].RowIndex); diff != "" {
		t.Fatalf("unexpected row index (-want +got):\n%s", diff)
	}
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     []Row
		previous []Row
		want     error
	}{
		{
			name:     "shape",
			data:     demandRows(),
			previous: demandRows()[:1],
			want:     ErrShapeMismatch,
		},
		{
			name:     "missing index column",
			data:     []Row{{"product": "apple", "demand": 1.0}},
			previous: []Row{{"product": "apple", "customer": "acme", "demand": 1.0}},
			want:     ErrMissingColumn,
		},
		{
			name: "duplicate key",
			data: []Row{
				{"product": "apple", "customer": "acme", "demand": 1.0},
				{"product": "apple", "customer": "acme", "demand": 2.0},
			},
			previous: demandRows(),
			want:     ErrDuplicateKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.data, tt.previous, Options{IndexColumns: []string{"product", "customer"}})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestComputeKeyed(t *testing.T) {
	previous := demandRows()
	data := []Row{
		{"product": "pear", "customer": "acme", "demand": 6.0},
		{"product": "plum", "customer": "acme", "demand": 1.0},
	}

	got, err := ComputeKeyed(data, previous, Options{IndexColumns: []string{"product", "customer"}})
	if err != nil {
		t.Fatalf("ComputeKeyed failed: %v", err)
	}
	if len(got.Changes) != 1 || got.Changes[0].RowIdx != 0 || got.Changes[0].CurrentValue != 6.0 {
		t.Fatalf("unexpected changes: %+v", got.Changes)
	}
	if len(got.Inserted) != 1 || got.Inserted[0]["product"] != "plum" {
		t.Fatalf("unexpected inserted rows: %v", got.Inserted)
	}
	if len(got.Deleted) != 1 || got.Deleted[0]["product"] != "apple" {
		t.Fatalf("unexpected deleted rows: %v", got.Deleted)
	}

	if _, err := ComputeKeyed(data, previous, Options{}); !errors.Is(err, ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
}
