package sqldb

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// ScenarioColumn names the column that scopes every row to a scenario.
const ScenarioColumn = "scenario_name"

// KeyArg is one primary-key column and the value that identifies a row.
type KeyArg struct {
	Column string
	Value  any
}

func (d Dialect) listScenarioNames(table string) string {
	return fmt.Sprintf("SELECT %[2]s FROM %[1]s ORDER BY %[2]s", d.Quote(table), d.Quote(ScenarioColumn))
}

// ListScenarioNames returns every scenario name in the scenario table, sorted.
func (q *Queries) ListScenarioNames(ctx context.Context, scenarioTable string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.listScenarioNames(scenarioTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d Dialect) insertScenario(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.Quote(table), d.Quote(ScenarioColumn), d.Placeholder(1))
}

// InsertScenario adds a row for name to the scenario table.
func (q *Queries) InsertScenario(ctx context.Context, scenarioTable, name string) error {
	_, err := q.db.ExecContext(ctx, q.dialect.insertScenario(scenarioTable), name)
	return err
}

func (d Dialect) tableColumns(table string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", d.Quote(table))
}

// TableColumns returns the live column names of table in storage order.
func (q *Queries) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.tableColumns(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return columns, rows.Err()
}

func (d Dialect) copyScenarioRows(table string, columns []string) string {
	list := d.quoteAll(columns)
	target := d.Quote(ScenarioColumn)
	if list != "" {
		return fmt.Sprintf("INSERT INTO %[1]s (%[2]s, %[3]s) SELECT %[4]s, %[3]s FROM %[1]s WHERE %[2]s = %[5]s",
			d.Quote(table), target, list, d.textParam(1), d.Placeholder(2))
	}
	return fmt.Sprintf("INSERT INTO %[1]s (%[2]s) SELECT %[3]s FROM %[1]s WHERE %[2]s = %[4]s",
		d.Quote(table), target, d.textParam(1), d.Placeholder(2))
}

// CopyScenarioRows duplicates the rows of source into target within table.
// columns lists every column to copy except the scenario column.
func (q *Queries) CopyScenarioRows(ctx context.Context, table string, columns []string, source, target string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.copyScenarioRows(table, columns), target, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d Dialect) deleteScenarioRows(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", d.Quote(table), d.Quote(ScenarioColumn), d.Placeholder(1))
}

// DeleteScenarioRows removes every row of scenario from table.
func (q *Queries) DeleteScenarioRows(ctx context.Context, table, scenario string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.deleteScenarioRows(table), scenario)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d Dialect) updateCell(table, column string, keys []KeyArg) (string, []bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s = %s WHERE %s = %s",
		d.Quote(table), d.Quote(column), d.Placeholder(1), d.Quote(ScenarioColumn), d.Placeholder(2))

	bound := make([]bool, len(keys))
	n := 3
	for i, key := range keys {
		if BindValue(key.Value) == nil {
			fmt.Fprintf(&b, " AND %s IS NULL", d.Quote(key.Column))
			continue
		}
		fmt.Fprintf(&b, " AND %s = %s", d.Quote(key.Column), d.Placeholder(n))
		bound[i] = true
		n++
	}
	return b.String(), bound
}

// UpdateCell sets column to value on the row of scenario identified by keys
// and returns the number of rows matched.
func (q *Queries) UpdateCell(ctx context.Context, table, column string, value any, scenario string, keys []KeyArg) (int64, error) {
	query, bound := q.dialect.updateCell(table, column, keys)
	args := make([]any, 0, len(keys)+2)
	args = append(args, BindValue(value), scenario)
	for i, key := range keys {
		if bound[i] {
			args = append(args, BindValue(key.Value))
		}
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d Dialect) countRows(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", d.Quote(table), d.Quote(ScenarioColumn), d.Placeholder(1))
}

// CountRows returns how many rows of table belong to scenario.
func (q *Queries) CountRows(ctx context.Context, table, scenario string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, q.dialect.countRows(table), scenario).Scan(&count)
	return count, err
}

func (d Dialect) selectScenarioRows(table string, orderBy []string) string {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", d.Quote(table), d.Quote(ScenarioColumn), d.Placeholder(1))
	if len(orderBy) > 0 {
		query += " ORDER BY " + d.quoteAll(orderBy)
	}
	return query
}

// SelectScenarioRows returns every row of scenario in table, keyed by column
// name, together with the column order reported by the store.
func (q *Queries) SelectScenarioRows(ctx context.Context, table, scenario string, orderBy []string) ([]string, []map[string]any, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.selectScenarioRows(table, orderBy), scenario)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = scanValue(values[i])
		}
		result = append(result, row)
	}
	return columns, result, rows.Err()
}

// BindValue converts a displayed cell value into a driver argument. Missing
// values become NULL and whole floats become integers, so JSON numbers bind
// cleanly to INTEGER columns.
func BindValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
	case float32:
		return BindValue(float64(x))
	}
	return v
}

func scanValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
