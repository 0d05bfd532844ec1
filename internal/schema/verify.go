package schema

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrSchemaMismatch is returned by Verify when the live store lacks a
// declared table or column.
var ErrSchemaMismatch = errors.New("schema: store does not match schema")

// ColumnLister reports the columns of a live table.
type ColumnLister interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// Verify checks that every declared column, and the scenario column on
// scenario-scoped tables, exists in the live store. Extra live columns are
// allowed.
func Verify(ctx context.Context, r *Registry, lister ColumnLister) error {
	var errs []error
	for _, t := range r.Tables() {
		live, err := lister.TableColumns(ctx, t.DBName)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: table %s: %w", ErrSchemaMismatch, t.DBName, err))
			continue
		}
		want := t.Columns()
		if !t.Shared {
			want = append([]string{ScenarioColumn}, want...)
		}
		for _, column := range want {
			if !slices.Contains(live, column) {
				errs = append(errs, fmt.Errorf("%w: %s.%s is missing", ErrSchemaMismatch, t.DBName, column))
			}
		}
	}
	return errors.Join(errs...)
}
