// Package schema describes the tables that make up a scenario: their key and
// value columns, foreign-key dependencies and declaration order.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ScenarioColumn is the column every scenario-scoped table carries.
const ScenarioColumn = "scenario_name"

// ErrInvalidSchema is returned when a table set cannot form a registry.
var ErrInvalidSchema = errors.New("schema: invalid schema")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ForeignKey points the listed columns at the index of another table.
type ForeignKey struct {
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
}

// Table describes one scenario table. ScenarioColumn is implicit and is never
// listed in IndexColumns or ValueColumns.
type Table struct {
	Name          string       `yaml:"name"`
	DBName        string       `yaml:"db_name"`
	IndexColumns  []string     `yaml:"index_columns"`
	ValueColumns  []string     `yaml:"value_columns"`
	ForeignTables []ForeignKey `yaml:"foreign_keys"`
	// Shared tables are administrative and not tied to a scenario.
	Shared bool `yaml:"shared"`
}

// Columns returns the index columns followed by the value columns.
func (t Table) Columns() []string {
	columns := make([]string, 0, len(t.IndexColumns)+len(t.ValueColumns))
	columns = append(columns, t.IndexColumns...)
	return append(columns, t.ValueColumns...)
}

// HasColumn reports whether column is declared on t.
func (t Table) HasColumn(column string) bool {
	return slices.Contains(t.IndexColumns, column) || slices.Contains(t.ValueColumns, column)
}

// IsIndex reports whether column is part of t's index.
func (t Table) IsIndex(column string) bool {
	return slices.Contains(t.IndexColumns, column)
}

// Registry holds tables in declaration order. The first table is the scenario
// table, whose rows are the scenario names themselves.
type Registry struct {
	tables []Table
	byName map[string]int
}

// NewRegistry validates tables and returns a registry preserving their order.
func NewRegistry(tables []Table) (*Registry, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables", ErrInvalidSchema)
	}
	if tables[0].Shared {
		return nil, fmt.Errorf("%w: scenario table %q cannot be shared", ErrInvalidSchema, tables[0].Name)
	}

	r := &Registry{
		tables: make([]Table, len(tables)),
		byName: make(map[string]int, len(tables)*2),
	}
	copy(r.tables, tables)

	for i, t := range r.tables {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: table %d has no name", ErrInvalidSchema, i)
		}
		if t.DBName == "" {
			t.DBName = t.Name
			r.tables[i].DBName = t.Name
		}
		if !identifier.MatchString(t.DBName) {
			return nil, fmt.Errorf("%w: table name %q", ErrInvalidSchema, t.DBName)
		}
		for _, key := range []string{t.Name, t.DBName} {
			if j, ok := r.byName[key]; ok && j != i {
				return nil, fmt.Errorf("%w: duplicate table %q", ErrInvalidSchema, key)
			}
			r.byName[key] = i
		}
		if err := validateColumns(t); err != nil {
			return nil, err
		}
	}

	for _, t := range r.tables {
		for _, fk := range t.ForeignTables {
			target, ok := r.Lookup(fk.Table)
			if !ok {
				return nil, fmt.Errorf("%w: %s references unknown table %q", ErrInvalidSchema, t.Name, fk.Table)
			}
			if len(fk.Columns) != len(target.IndexColumns) {
				return nil, fmt.Errorf("%w: %s foreign key to %s has %d columns, want %d",
					ErrInvalidSchema, t.Name, target.Name, len(fk.Columns), len(target.IndexColumns))
			}
			for _, column := range fk.Columns {
				if !t.HasColumn(column) {
					return nil, fmt.Errorf("%w: %s foreign key column %q is not declared", ErrInvalidSchema, t.Name, column)
				}
			}
		}
	}
	return r, nil
}

func validateColumns(t Table) error {
	seen := map[string]struct{}{}
	for _, column := range t.Columns() {
		if !identifier.MatchString(column) {
			return fmt.Errorf("%w: %s column %q", ErrInvalidSchema, t.Name, column)
		}
		if column == ScenarioColumn {
			return fmt.Errorf("%w: %s declares %s explicitly", ErrInvalidSchema, t.Name, ScenarioColumn)
		}
		if _, ok := seen[column]; ok {
			return fmt.Errorf("%w: %s declares %q twice", ErrInvalidSchema, t.Name, column)
		}
		seen[column] = struct{}{}
	}
	return nil
}

// Tables returns every table in declaration order.
func (r *Registry) Tables() []Table {
	return slices.Clone(r.tables)
}

// Managed returns the scenario-scoped tables in declaration order, starting
// with the scenario table.
func (r *Registry) Managed() []Table {
	managed := make([]Table, 0, len(r.tables))
	for _, t := range r.tables {
		if !t.Shared {
			managed = append(managed, t)
		}
	}
	return managed
}

// ScenarioTable returns the table holding one row per scenario.
func (r *Registry) ScenarioTable() Table {
	return r.tables[0]
}

// Lookup finds a table by its logical or database name.
func (r *Registry) Lookup(name string) (Table, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Table{}, false
	}
	return r.tables[i], true
}
