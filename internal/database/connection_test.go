package database

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsedash/scenariodb/internal/config"
	"github.com/dsedash/scenariodb/internal/database/sqldb"
)

func setupTestDB(t *testing.T) *Context {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("SCENARIODB_DIR", tmp)

	ctx, err := CreateDatabase("")
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}

	t.Cleanup(func() {
		if err := CloseDatabase(ctx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})

	return ctx
}

var builtinTables = []string{
	"scenario", "product_margin", "inventory", "demand", "truck",
	"parameter", "demand_output", "customer_truck_output", "kpis",
}

func TestDatabaseCreationAndMigration(t *testing.T) {
	ctx := setupTestDB(t)

	dbPath := config.GetDBPath()
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file to exist at %s: %v", dbPath, err)
	}
	if ctx.Dialect != sqldb.SQLite {
		t.Fatalf("expected sqlite dialect, got %s", ctx.Dialect)
	}

	var version int
	if err := ctx.DB.QueryRow("SELECT version FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("failed to read migration version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected migration version 1, got %d", version)
	}

	for _, table := range builtinTables {
		if !tableExists(t, ctx.DB, table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestCreateDatabaseReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.db")

	first, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("CreateDatabase returned error: %v", err)
	}
	if err := first.Queries.InsertScenario(t.Context(), "scenario", "Base"); err != nil {
		t.Fatalf("InsertScenario failed: %v", err)
	}
	if err := CloseDatabase(first); err != nil {
		t.Fatalf("CloseDatabase error: %v", err)
	}

	second, err := CreateDatabase("sqlite://" + path)
	if err != nil {
		t.Fatalf("reopening returned error: %v", err)
	}
	defer func() { _ = CloseDatabase(second) }()

	assertCount(t, second.DB, "scenario", 1)
}

func TestConnectDatabaseSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")

	ctx, err := ConnectDatabase(path)
	if err != nil {
		t.Fatalf("ConnectDatabase returned error: %v", err)
	}
	defer func() { _ = CloseDatabase(ctx) }()

	if tableExists(t, ctx.DB, "scenario") {
		t.Fatalf("expected no tables without migrations")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := ctx.DB.Exec(`INSERT INTO product_margin (scenario_name, product, margin, size) VALUES ('Missing', 'apple', 1, 1)`)
	if err == nil {
		t.Fatalf("expected foreign key violation for unknown scenario")
	}
}

func TestParseDSN(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name     string
		dsn      string
		dialect  sqldb.Dialect
		driver   string
		contains []string
	}{
		{name: "postgres", dsn: "postgres://u:p@localhost/db", dialect: sqldb.Postgres, driver: "pgx", contains: []string{"postgres://u:p@localhost/db"}},
		{name: "postgresql", dsn: "postgresql://localhost/db", dialect: sqldb.Postgres, driver: "pgx"},
		{name: "mysql", dsn: "mysql://u:p@tcp(localhost:3306)/db", dialect: sqldb.MySQL, driver: "mysql", contains: []string{"multiStatements=true", "clientFoundRows=true", "tcp(localhost:3306)/db"}},
		{name: "sqlite url", dsn: "sqlite://" + filepath.Join(tmp, "a.db"), dialect: sqldb.SQLite, driver: "sqlite", contains: []string{"a.db", "foreign_keys(ON)"}},
		{name: "bare path", dsn: filepath.Join(tmp, "b.db"), dialect: sqldb.SQLite, driver: "sqlite", contains: []string{"b.db"}},
		{name: "memory", dsn: ":memory:", dialect: sqldb.SQLite, driver: "sqlite", contains: []string{"file::memory:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDSN(tt.dsn)
			if err != nil {
				t.Fatalf("ParseDSN failed: %v", err)
			}
			if got.Dialect != tt.dialect || got.Driver != tt.driver {
				t.Fatalf("unexpected target %+v", got)
			}
			for _, part := range tt.contains {
				if !strings.Contains(got.Conn, part) {
					t.Fatalf("expected %q in connection string %q", part, got.Conn)
				}
			}
		})
	}

	if _, err := ParseDSN("redis://localhost"); !errors.Is(err, ErrInvalidDSN) {
		t.Fatalf("expected ErrInvalidDSN, got %v", err)
	}
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("tableExists query failed for %s: %v", table, err)
	}
	return true
}

func assertCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("count query failed for %s: %v", table, err)
	}
	if count != expected {
		t.Fatalf("expected %s to have %d rows, got %d", table, expected, count)
	}
}
