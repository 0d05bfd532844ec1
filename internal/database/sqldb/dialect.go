// Package sqldb renders and runs the statements that read and write scenario
// tables. Identifiers are quoted for the target dialect and every value is a
// bound parameter.
package sqldb

import (
	"strconv"
	"strings"
)

// Dialect selects placeholder and identifier quoting rules.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
	MySQL
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// Placeholder returns the bind marker for the n-th parameter, counting from 1.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Quote quotes an identifier, doubling any embedded quote character.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// textParam renders a placeholder whose type the server cannot infer from
// context, such as a constant in an INSERT ... SELECT list.
func (d Dialect) textParam(n int) string {
	if d == Postgres {
		return d.Placeholder(n) + "::text"
	}
	return d.Placeholder(n)
}

func (d Dialect) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = d.Quote(ident)
	}
	return strings.Join(quoted, ", ")
}
