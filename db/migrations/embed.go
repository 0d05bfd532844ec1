// Package migrations contains the embedded SQL migrations that create the
// built-in scenario tables.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
