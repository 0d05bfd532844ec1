package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tableNames(tables []Table) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	return names
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	if got := r.ScenarioTable().DBName; got != "scenario" {
		t.Fatalf("expected scenario table, got %q", got)
	}

	want := []string{"Scenario", "ProductMargin", "Inventory", "Demand", "Truck", "Parameter", "DemandOutput", "TruckOutput", "Kpis"}
	if diff := cmp.Diff(want, tableNames(r.Managed())); diff != "" {
		t.Fatalf("unexpected declaration order (-want +got):\n%s", diff)
	}

	demand, ok := r.Lookup("demand")
	if !ok {
		t.Fatalf("expected lookup by db name to succeed")
	}
	if byName, _ := r.Lookup("Demand"); byName.DBName != demand.DBName {
		t.Fatalf("expected lookup by logical name to return the same table")
	}
	if !demand.IsIndex("customer") || demand.IsIndex("demand") {
		t.Fatalf("unexpected index columns: %v", demand.IndexColumns)
	}
	if !demand.HasColumn("demand") || demand.HasColumn(ScenarioColumn) {
		t.Fatalf("unexpected declared columns: %v", demand.Columns())
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		tables []Table
	}{
		{name: "empty"},
		{name: "shared scenario table", tables: []Table{{Name: "Scenario", Shared: true}}},
		{name: "duplicate", tables: []Table{{Name: "Scenario"}, {Name: "A"}, {Name: "B", DBName: "A"}}},
		{name: "bad identifier", tables: []Table{{Name: "Scenario"}, {Name: "A", DBName: "a; drop"}}},
		{name: "explicit scenario column", tables: []Table{{Name: "Scenario"}, {Name: "A", IndexColumns: []string{ScenarioColumn}}}},
		{name: "repeated column", tables: []Table{{Name: "Scenario"}, {Name: "A", IndexColumns: []string{"k"}, ValueColumns: []string{"k"}}}},
		{name: "unknown fk", tables: []Table{{Name: "Scenario"}, {Name: "A", IndexColumns: []string{"k"}, ForeignTables: []ForeignKey{{Table: "B", Columns: []string{"k"}}}}}},
		{
			name: "fk arity",
			tables: []Table{
				{Name: "Scenario"},
				{Name: "A", IndexColumns: []string{"k", "j"}},
				{Name: "B", IndexColumns: []string{"k"}, ForeignTables: []ForeignKey{{Table: "A", Columns: []string{"k"}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.tables); !errors.Is(err, ErrInvalidSchema) {
				t.Fatalf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestSortByDependency(t *testing.T) {
	tables := []Table{
		{Name: "DemandOutput", ForeignTables: []ForeignKey{{Table: "Demand"}}},
		{Name: "Truck"},
		{Name: "Demand", ForeignTables: []ForeignKey{{Table: "ProductMargin"}}},
		{Name: "ProductMargin"},
		{Name: "Kpis"},
	}

	sorted, err := SortByDependency(tables)
	if err != nil {
		t.Fatalf("SortByDependency failed: %v", err)
	}
	want := []string{"ProductMargin", "Demand", "DemandOutput", "Truck", "Kpis"}
	if diff := cmp.Diff(want, tableNames(sorted)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	cyclic := []Table{
		{Name: "A", ForeignTables: []ForeignKey{{Table: "B"}}},
		{Name: "B", ForeignTables: []ForeignKey{{Table: "A"}}},
	}
	if _, err := SortByDependency(cyclic); !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `scenario_table: scenarios
tables:
  - name: Orders
    db_name: orders
    index_columns: [order_id]
    value_columns: [product, quantity]
    foreign_keys:
      - table: Products
        columns: [product]
  - name: Products
    db_name: products
    index_columns: [product]
    value_columns: [price]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Scenario", "Products", "Orders"}, tableNames(r.Tables())); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if r.ScenarioTable().DBName != "scenarios" {
		t.Fatalf("expected scenario table %q, got %q", "scenarios", r.ScenarioTable().DBName)
	}
}

type fakeLister map[string][]string

func (f fakeLister) TableColumns(_ context.Context, table string) ([]string, error) {
	columns, ok := f[table]
	if !ok {
		return nil, errors.New("no such table")
	}
	return columns, nil
}

func TestVerify(t *testing.T) {
	r, err := NewRegistry([]Table{
		{Name: "Scenario", DBName: "scenario"},
		{Name: "Truck", DBName: "truck", IndexColumns: []string{"truck_model"}, ValueColumns: []string{"truck_cost"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	ok := fakeLister{
		"scenario": {"scenario_name"},
		"truck":    {"scenario_name", "truck_model", "truck_cost", "extra"},
	}
	if err := Verify(context.Background(), r, ok); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	missing := fakeLister{
		"scenario": {"scenario_name"},
		"truck":    {"scenario_name", "truck_model"},
	}
	if err := Verify(context.Background(), r, missing); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
