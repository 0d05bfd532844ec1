package services

import (
	"context"
	"fmt"
	"slices"

	golog "github.com/ipfs/go-log/v2"

	"github.com/dsedash/scenariodb/internal/database"
	"github.com/dsedash/scenariodb/internal/database/sqldb"
	"github.com/dsedash/scenariodb/internal/diff"
	"github.com/dsedash/scenariodb/internal/naming"
	"github.com/dsedash/scenariodb/internal/schema"
)

var log = golog.Logger("services")

// Options configures a ScenarioService.
type Options struct {
	// Transactional runs each public operation as one atomic transaction.
	// When false every statement commits on its own.
	Transactional bool
	Allocator     naming.Allocator
}

// DefaultOptions returns transactional mode with the default name allocator.
func DefaultOptions() Options {
	return Options{Transactional: true}
}

// ScenarioService applies scenario lifecycle operations and cell edits to the
// store.
type ScenarioService struct {
	ctx    *database.Context
	schema *schema.Registry
	opts   Options
}

// NewScenarioService returns a service over ctx for the tables in registry.
func NewScenarioService(ctx *database.Context, registry *schema.Registry, opts Options) *ScenarioService {
	return &ScenarioService{ctx: ctx, schema: registry, opts: opts}
}

// Schema returns the table registry the service operates on.
func (s *ScenarioService) Schema() *schema.Registry {
	return s.schema
}

// TableCount is the number of rows one table holds for a scenario.
type TableCount struct {
	Table string
	Rows  int64
}

// ScenarioSummary lists per-table row counts for one scenario.
type ScenarioSummary struct {
	Name   string
	Tables []TableCount
}

// TableData is one table of one scenario without its scenario column.
type TableData struct {
	Table   schema.Table
	Columns []string
	Rows    []diff.Row
}

// UpdateCellChanges applies updates in order and returns the number of cells
// written. Every update is validated against the schema before any write.
func (s *ScenarioService) UpdateCellChanges(ctx context.Context, updates []diff.DbCellUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tables := make([]schema.Table, len(updates))
	for i, u := range updates {
		t, err := s.resolveUpdate(u)
		if err != nil {
			return 0, fmt.Errorf("update %d: %w", i, err)
		}
		tables[i] = t
	}

	var total int64
	err := s.unit().run(ctx, func(ctx context.Context, q *sqldb.Queries) error {
		for i, u := range updates {
			keys := make([]sqldb.KeyArg, len(u.RowIndex))
			for j, kv := range u.RowIndex {
				keys[j] = sqldb.KeyArg{Column: kv.Column, Value: kv.Value}
			}
			n, err := q.UpdateCell(ctx, tables[i].DBName, u.ColumnName, u.CurrentValue, u.ScenarioName, keys)
			if err != nil {
				return fmt.Errorf("update %d on %s.%s: %w", i, tables[i].DBName, u.ColumnName, err)
			}
			if n != 1 {
				return fmt.Errorf("%w: update %d on %s.%s matched %d rows", ErrRowNotResolved, i, tables[i].DBName, u.ColumnName, n)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, wrapStoreError("update cells", err)
	}

	log.Debugw("applied cell updates", "count", total)
	return total, nil
}

func (s *ScenarioService) resolveUpdate(u diff.DbCellUpdate) (schema.Table, error) {
	t, ok := s.schema.Lookup(u.TableName)
	if !ok || t.Shared {
		return schema.Table{}, fmt.Errorf("%w: table %q", ErrUnknownTableOrColumn, u.TableName)
	}
	if !t.HasColumn(u.ColumnName) {
		return schema.Table{}, fmt.Errorf("%w: column %q of %s", ErrUnknownTableOrColumn, u.ColumnName, t.DBName)
	}
	if len(u.RowIndex) == 0 {
		return schema.Table{}, fmt.Errorf("%w: empty row index for %s.%s", ErrRowNotResolved, t.DBName, u.ColumnName)
	}
	for _, kv := range u.RowIndex {
		if !t.HasColumn(kv.Column) {
			return schema.Table{}, fmt.Errorf("%w: key column %q of %s", ErrUnknownTableOrColumn, kv.Column, t.DBName)
		}
	}
	return t, nil
}

// CreateScenario adds an empty scenario.
func (s *ScenarioService) CreateScenario(ctx context.Context, name string) error {
	err := s.unit().run(ctx, func(ctx context.Context, q *sqldb.Queries) error {
		names, err := q.ListScenarioNames(ctx, s.schema.ScenarioTable().DBName)
		if err != nil {
			return err
		}
		if slices.Contains(names, name) {
			return fmt.Errorf("%w: %q", ErrNamingConflict, name)
		}
		return q.InsertScenario(ctx, s.schema.ScenarioTable().DBName, name)
	})
	return wrapStoreError("create scenario", err)
}

// DuplicateScenario copies every scenario-scoped row of source into a new
// scenario and returns its name. An empty target is replaced by the first
// free "source(n)" name.
func (s *ScenarioService) DuplicateScenario(ctx context.Context, source, target string) (string, error) {
	var created string
	err := s.unit().run(ctx, func(ctx context.Context, q *sqldb.Queries) error {
		names, err := q.ListScenarioNames(ctx, s.schema.ScenarioTable().DBName)
		if err != nil {
			return err
		}
		if target == "" {
			if !slices.Contains(names, source) {
				return fmt.Errorf("%w: %q", ErrScenarioNotFound, source)
			}
			target, err = s.opts.Allocator.Allocate(source, names)
			if err != nil {
				return err
			}
		}
		if err := s.copyScenario(ctx, q, names, source, target); err != nil {
			return err
		}
		created = target
		return nil
	})
	if err != nil {
		return "", wrapStoreError("duplicate scenario", err)
	}

	log.Infow("duplicated scenario", "source", source, "target", created)
	return created, nil
}

// RenameScenario copies source to target and then deletes source, in one
// unit of work. The scenario column is never updated in place.
func (s *ScenarioService) RenameScenario(ctx context.Context, source, target string) error {
	err := s.unit().run(ctx, func(ctx context.Context, q *sqldb.Queries) error {
		names, err := q.ListScenarioNames(ctx, s.schema.ScenarioTable().DBName)
		if err != nil {
			return err
		}
		if err := s.copyScenario(ctx, q, names, source, target); err != nil {
			return err
		}
		_, err = s.deleteScenario(ctx, q, source)
		return err
	})
	if err != nil {
		return wrapStoreError("rename scenario", err)
	}

	log.Infow("renamed scenario", "source", source, "target", target)
	return nil
}

// DeleteScenario removes every row of name, dependent tables first and the
// scenario row last. Deleting a missing scenario removes nothing.
func (s *ScenarioService) DeleteScenario(ctx context.Context, name string) (int64, error) {
	var total int64
	err := s.unit().run(ctx, func(ctx context.Context, q *sqldb.Queries) error {
		n, err := s.deleteScenario(ctx, q, name)
		total = n
		return err
	})
	if err != nil {
		return 0, wrapStoreError("delete scenario", err)
	}

	log.Infow("deleted scenario", "name", name, "rows", total)
	return total, nil
}

// copyScenario validates names and then copies source to target table by
// table in declaration order.
func (s *ScenarioService) copyScenario(ctx context.Context, q *sqldb.Queries, names []string, source, target string) error {
	if target == "" {
		return fmt.Errorf("%w: empty target name", ErrNamingConflict)
	}
	if slices.Contains(names, target) {
		return fmt.Errorf("%w: %q", ErrNamingConflict, target)
	}
	if !slices.Contains(names, source) {
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, source)
	}

	for _, t := range s.schema.Managed() {
		columns, err := s.copyColumns(ctx, q, t)
		if err != nil {
			return err
		}
		n, err := q.CopyScenarioRows(ctx, t.DBName, columns, source, target)
		if err != nil {
			return fmt.Errorf("copy %s: %w", t.DBName, err)
		}
		log.Debugw("copied rows", "table", t.DBName, "rows", n)
	}
	return nil
}

// copyColumns lists the live columns of t other than the scenario column, so
// columns added to the store outside the schema are copied too.
func (s *ScenarioService) copyColumns(ctx context.Context, q *sqldb.Queries, t schema.Table) ([]string, error) {
	live, err := q.TableColumns(ctx, t.DBName)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", t.DBName, err)
	}
	columns := make([]string, 0, len(live))
	for _, column := range live {
		if column != schema.ScenarioColumn {
			columns = append(columns, column)
		}
	}
	return columns, nil
}

func (s *ScenarioService) deleteScenario(ctx context.Context, q *sqldb.Queries, name string) (int64, error) {
	managed := s.schema.Managed()
	var total int64
	for i := len(managed) - 1; i >= 0; i-- {
		t := managed[i]
		n, err := q.DeleteScenarioRows(ctx, t.DBName, name)
		if err != nil {
			return 0, fmt.Errorf("delete from %s: %w", t.DBName, err)
		}
		total += n
	}
	return total, nil
}

// ListScenarios returns every scenario name, sorted.
func (s *ScenarioService) ListScenarios(ctx context.Context) ([]string, error) {
	names, err := s.ctx.Queries.ListScenarioNames(ctx, s.schema.ScenarioTable().DBName)
	if err != nil {
		return nil, wrapStoreError("list scenarios", err)
	}
	return names, nil
}

// ScenarioSummaries returns the row count of every scenario table for each
// scenario.
func (s *ScenarioService) ScenarioSummaries(ctx context.Context) ([]ScenarioSummary, error) {
	names, err := s.ListScenarios(ctx)
	if err != nil {
		return nil, err
	}

	managed := s.schema.Managed()[1:]
	summaries := make([]ScenarioSummary, 0, len(names))
	for _, name := range names {
		summary := ScenarioSummary{Name: name, Tables: make([]TableCount, 0, len(managed))}
		for _, t := range managed {
			n, err := s.ctx.Queries.CountRows(ctx, t.DBName, name)
			if err != nil {
				return nil, wrapStoreError("count rows", fmt.Errorf("%s: %w", t.DBName, err))
			}
			summary.Tables = append(summary.Tables, TableCount{Table: t.Name, Rows: n})
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ReadTable returns the rows of table for scenario ordered by the table's
// index columns.
func (s *ScenarioService) ReadTable(ctx context.Context, scenario, table string) (*TableData, error) {
	t, ok := s.schema.Lookup(table)
	if !ok || t.Shared {
		return nil, fmt.Errorf("%w: table %q", ErrUnknownTableOrColumn, table)
	}

	columns, rows, err := s.ctx.Queries.SelectScenarioRows(ctx, t.DBName, scenario, t.IndexColumns)
	if err != nil {
		return nil, wrapStoreError("read table", fmt.Errorf("%s: %w", t.DBName, err))
	}

	data := &TableData{Table: t, Columns: make([]string, 0, len(columns)), Rows: make([]diff.Row, 0, len(rows))}
	for _, column := range columns {
		if column != schema.ScenarioColumn {
			data.Columns = append(data.Columns, column)
		}
	}
	for _, row := range rows {
		delete(row, schema.ScenarioColumn)
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

// VerifySchema checks the registry against the live store.
func (s *ScenarioService) VerifySchema(ctx context.Context) error {
	return schema.Verify(ctx, s.schema, s.ctx.Queries)
}

func (s *ScenarioService) unit() unitOfWork {
	if s.opts.Transactional {
		return txUnit{db: s.ctx.DB, queries: s.ctx.Queries}
	}
	return autoCommitUnit{queries: s.ctx.Queries}
}
