package services

import (
	"errors"
	"fmt"

	"github.com/dsedash/scenariodb/internal/naming"
)

var (
	// ErrNamingConflict indicates the target scenario name is already in use.
	ErrNamingConflict = errors.New("services: scenario name already exists")
	// ErrAllocationExhausted indicates no free copy name was found.
	ErrAllocationExhausted = naming.ErrExhausted
	// ErrUnknownTableOrColumn indicates an update or read addressed a table
	// or column outside the schema.
	ErrUnknownTableOrColumn = errors.New("services: unknown table or column")
	// ErrScenarioNotFound indicates the source scenario does not exist.
	ErrScenarioNotFound = errors.New("services: scenario not found")
	// ErrRowNotResolved indicates an update did not match exactly one row.
	ErrRowNotResolved = errors.New("services: update did not match exactly one row")
)

var domainErrors = []error{
	ErrNamingConflict,
	ErrAllocationExhausted,
	ErrUnknownTableOrColumn,
	ErrScenarioNotFound,
	ErrRowNotResolved,
}

// StoreError reports a failure raised by the underlying store while running
// Op.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapStoreError leaves domain errors untouched and wraps everything else.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}
