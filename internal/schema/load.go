package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a custom schema.
//
//	scenario_table: scenario
//	tables:
//	  - name: Demand
//	    db_name: demand
//	    index_columns: [product, customer]
//	    value_columns: [demand]
//	    foreign_keys:
//	      - table: ProductMargin
//	        columns: [product]
type File struct {
	ScenarioTable string  `yaml:"scenario_table"`
	Tables        []Table `yaml:"tables"`
}

// LoadFile reads a YAML schema from path. Tables may appear in any order; they
// are sorted by foreign-key dependency behind the scenario table.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML schema data.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("%w: schema declares no tables", ErrInvalidSchema)
	}

	scenarioTable := f.ScenarioTable
	if scenarioTable == "" {
		scenarioTable = "scenario"
	}

	sorted, err := SortByDependency(f.Tables)
	if err != nil {
		return nil, err
	}
	tables := make([]Table, 0, len(sorted)+1)
	tables = append(tables, Table{Name: "Scenario", DBName: scenarioTable})
	tables = append(tables, sorted...)
	return NewRegistry(tables)
}
