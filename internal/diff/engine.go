package diff

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrShapeMismatch is returned when two snapshots cannot be aligned by position.
	ErrShapeMismatch = errors.New("diff: snapshots have different row counts")
	// ErrMissingColumn is returned when an index column is absent from a snapshot row.
	ErrMissingColumn = errors.New("diff: index column missing from snapshot")
	// ErrDuplicateKey is returned when two rows of one snapshot share an index key.
	ErrDuplicateKey = errors.New("diff: duplicate index key in snapshot")
	// ErrNoIndex is returned by ComputeKeyed when no index columns are given.
	ErrNoIndex = errors.New("diff: keyed comparison requires index columns")
)

// Options controls how two snapshots are compared.
type Options struct {
	// IndexColumns identify a row within one scenario. When empty, every
	// column is used as the row key.
	IndexColumns []string
	// Columns fixes the order in which changed columns are reported. When
	// empty, the sorted union of the snapshot columns is used.
	Columns []string
	// TableName and ScenarioName are copied onto every emitted diff.
	TableName    string
	ScenarioName string
}

// Compute returns one CellDiff per cell whose value differs between data and
// previous at the same row position. Both snapshots must have the same row
// count and ordering; empty input yields no diffs.
func Compute(data, previous []Row, opts Options) ([]CellDiff, error) {
	if len(data) == 0 || len(previous) == 0 {
		return nil, nil
	}
	if len(data) != len(previous) {
		return nil, fmt.Errorf("%w: %d rows, %d previous rows", ErrShapeMismatch, len(data), len(previous))
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = unionColumns(data, previous)
	}

	keyColumns := opts.IndexColumns
	if len(keyColumns) == 0 {
		keyColumns = columns
	} else {
		if err := requireColumns(keyColumns, data, previous); err != nil {
			return nil, err
		}
		if err := requireUnique(keyColumns, data); err != nil {
			return nil, err
		}
		if err := requireUnique(keyColumns, previous); err != nil {
			return nil, err
		}
	}

	var changes []CellDiff
	for i := range data {
		current, prev := data[i], previous[i]
		for _, column := range columns {
			if Equal(current[column], prev[column]) {
				continue
			}
			changes = append(changes, opts.cellDiff(i, column, current, prev, keyColumns))
		}
	}
	return changes, nil
}

// KeyedResult is the outcome of comparing snapshots by primary key.
type KeyedResult struct {
	Changes  []CellDiff
	Inserted []Row
	Deleted  []Row
}

// ComputeKeyed matches rows of data and previous by their index columns
// instead of by position. Rows present only in data are reported as
// inserted, rows present only in previous as deleted. RowIdx on a change is
// the row position in data.
func ComputeKeyed(data, previous []Row, opts Options) (*KeyedResult, error) {
	if len(opts.IndexColumns) == 0 {
		return nil, ErrNoIndex
	}
	if err := requireColumns(opts.IndexColumns, data, previous); err != nil {
		return nil, err
	}
	if err := requireUnique(opts.IndexColumns, data); err != nil {
		return nil, err
	}
	if err := requireUnique(opts.IndexColumns, previous); err != nil {
		return nil, err
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = unionColumns(data, previous)
	}

	prevByKey := make(map[string]int, len(previous))
	for j, row := range previous {
		prevByKey[rowKey(row, opts.IndexColumns)] = j
	}

	result := &KeyedResult{}
	matched := make([]bool, len(previous))
	for i, row := range data {
		j, ok := prevByKey[rowKey(row, opts.IndexColumns)]
		if !ok {
			result.Inserted = append(result.Inserted, row)
			continue
		}
		matched[j] = true
		for _, column := range columns {
			if Equal(row[column], previous[j][column]) {
				continue
			}
			result.Changes = append(result.Changes, opts.cellDiff(i, column, row, previous[j], opts.IndexColumns))
		}
	}
	for j, row := range previous {
		if !matched[j] {
			result.Deleted = append(result.Deleted, row)
		}
	}
	return result, nil
}

// Equal reports whether two cell values are the same. Missing values (nil or
// NaN) are equal to each other, and numbers compare by value regardless of
// their Go type.
func Equal(a, b any) bool {
	aMissing, bMissing := IsMissing(a), IsMissing(b)
	if aMissing || bMissing {
		return aMissing && bMissing
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// IsMissing reports whether v represents a missing value.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

func (o Options) cellDiff(idx int, column string, current, previous Row, keyColumns []string) CellDiff {
	rowIndex := make([]KeyValue, 0, len(keyColumns))
	for _, key := range keyColumns {
		rowIndex = append(rowIndex, KeyValue{Column: key, Value: previous[key]})
	}
	return CellDiff{
		ScenarioName:  o.ScenarioName,
		TableName:     o.TableName,
		ColumnName:    column,
		RowIdx:        idx,
		RowIndex:      rowIndex,
		CurrentValue:  current[column],
		PreviousValue: previous[column],
	}
}

func unionColumns(snapshots ...[]Row) []string {
	seen := map[string]struct{}{}
	for _, rows := range snapshots {
		for _, row := range rows {
			for column := range row {
				seen[column] = struct{}{}
			}
		}
	}
	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func requireColumns(columns []string, snapshots ...[]Row) error {
	for _, rows := range snapshots {
		for i, row := range rows {
			for _, column := range columns {
				if _, ok := row[column]; !ok {
					return fmt.Errorf("%w: %q in row %d", ErrMissingColumn, column, i)
				}
			}
		}
	}
	return nil
}

func requireUnique(columns []string, rows []Row) error {
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		key := rowKey(row, columns)
		if first, ok := seen[key]; ok {
			return fmt.Errorf("%w: rows %d and %d", ErrDuplicateKey, first, i)
		}
		seen[key] = i
	}
	return nil
}

func rowKey(row Row, columns []string) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = keyPart(row[column])
	}
	return strings.Join(parts, "\x1f")
}

func keyPart(v any) string {
	if IsMissing(v) {
		return "\x00"
	}
	if f, ok := toFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
