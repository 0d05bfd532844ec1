// Package diff detects cell-level edits between two snapshots of a displayed
// table and turns accumulated edits into addressable database cell updates.
package diff

// Row is one displayed record, keyed by column name. Values are whatever the
// display layer decoded from JSON: strings, float64, bool or nil.
type Row = map[string]any

// KeyValue is one primary-key column of a row together with its value.
type KeyValue struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// CellDiff describes a single cell whose value changed between two snapshots.
type CellDiff struct {
	ScenarioName  string     `json:"scenario_name,omitempty"`
	TableName     string     `json:"table_name,omitempty"`
	ColumnName    string     `json:"column_name"`
	RowIdx        int        `json:"row_idx"`
	RowIndex      []KeyValue `json:"row_index"`
	CurrentValue  any        `json:"current_value"`
	PreviousValue any        `json:"previous_value"`
}

// DbCellUpdate is the part of a CellDiff needed to write one cell back to
// the store.
type DbCellUpdate struct {
	ScenarioName string     `json:"scenario_name"`
	TableName    string     `json:"table_name"`
	RowIndex     []KeyValue `json:"row_index"`
	ColumnName   string     `json:"column_name"`
	CurrentValue any        `json:"current_value"`
}

// Batch is the set of diffs detected for one edit event.
type Batch struct {
	Timestamp int64      `json:"timestamp"`
	Diffs     []CellDiff `json:"diffs"`
}
