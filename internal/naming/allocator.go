// Package naming picks free scenario names for copies of an existing scenario.
package naming

import (
	"errors"
	"fmt"
)

// DefaultMaxAttempts bounds how many candidate names are tried.
const DefaultMaxAttempts = 20

// ErrExhausted is returned when every candidate name within the attempt bound
// is already in use.
var ErrExhausted = errors.New("naming: no free scenario name")

// Allocator derives candidate names as Format(source, n) for n = 1, 2, ...
// The zero value uses "source(n)" and DefaultMaxAttempts.
type Allocator struct {
	Format      func(source string, n int) string
	MaxAttempts int
}

// Allocate returns the first candidate not present in existing. The result is
// only free at the instant of checking; callers rely on the store's key
// constraint to reject a concurrent allocation of the same name.
func (a Allocator) Allocate(source string, existing []string) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		taken[name] = struct{}{}
	}

	format := a.Format
	if format == nil {
		format = DefaultFormat
	}
	limit := a.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}

	for n := 1; n <= limit; n++ {
		candidate := format(source, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q after %d attempts", ErrExhausted, source, limit)
}

// DefaultFormat renders "name(n)".
func DefaultFormat(source string, n int) string {
	return fmt.Sprintf("%s(%d)", source, n)
}
