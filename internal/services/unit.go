package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dsedash/scenariodb/internal/database/sqldb"
)

// unitOfWork runs every statement of one public operation. Both modes share
// the same operation code; only commit behaviour differs.
type unitOfWork interface {
	run(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error
}

// txUnit runs fn inside one transaction and rolls back on any error.
type txUnit struct {
	db      *sql.DB
	queries *sqldb.Queries
}

func (u txUnit) run(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, u.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// autoCommitUnit lets each statement commit on its own. A failure leaves the
// statements that already ran in place.
type autoCommitUnit struct {
	queries *sqldb.Queries
}

func (u autoCommitUnit) run(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error {
	return fn(ctx, u.queries)
}
