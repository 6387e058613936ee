package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmbeddedMigrationsPerDialect(t *testing.T) {
	for _, dialect := range []string{SQLite, Postgres} {
		m, err := NewMigrationManager(nil, dialect)
		if err != nil {
			t.Fatalf("NewMigrationManager(%s): %v", dialect, err)
		}
		migrations, err := m.Available()
		if err != nil {
			t.Fatalf("Available(%s): %v", dialect, err)
		}
		if len(migrations) == 0 {
			t.Fatalf("Expected embedded migrations for %s", dialect)
		}
		if migrations[0].Version != 1 || migrations[0].Name != "create_records" {
			t.Errorf("Unexpected first %s migration: %+v", dialect, migrations[0])
		}
	}
}

func TestApplySQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	m, err := NewMigrationManager(db, SQLite)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	n, err := m.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n == 0 {
		t.Fatalf("Expected migrations to be applied")
	}

	if _, err := db.Exec("INSERT INTO records (created_dt, data_source_modified_dt) VALUES ('2024-01-01', '2024-01-01')"); err != nil {
		t.Fatalf("records table not usable: %v", err)
	}

	n, err = m.Apply(ctx)
	if err != nil {
		t.Fatalf("Second apply failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no pending migrations on second apply, got %d", n)
	}

	status, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status.Pending) != 0 {
		t.Errorf("Expected no pending migrations, got %v", status.Pending)
	}
	if len(status.Applied) == 0 || status.Applied[0].AppliedAt == "" {
		t.Errorf("Expected applied migrations with timestamps, got %+v", status.Applied)
	}
}

func TestApplyFromFS(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	source := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);\nCREATE TABLE c (id INTEGER);\n")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
		"bad_name.sql":   {Data: []byte("ignored")},
	}
	m := NewMigrationManagerFromFS(db, SQLite, source)

	available, err := m.Available()
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	var versions []int
	for _, mig := range available {
		versions = append(versions, mig.Version)
	}
	if !reflect.DeepEqual(versions, []int{1, 2}) {
		t.Fatalf("Expected versions [1 2], got %v", versions)
	}

	if _, err := m.Apply(ctx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for _, table := range []string{"a", "b", "c"} {
		if _, err := db.Exec("SELECT COUNT(*) FROM " + table); err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	source := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (id INTEGER);\nNOT VALID SQL;\n")},
	}
	m := NewMigrationManagerFromFS(db, SQLite, source)

	if _, err := m.Apply(ctx); err == nil {
		t.Fatalf("Expected broken migration to fail")
	}
	if _, err := db.Exec("SELECT COUNT(*) FROM ok"); err == nil {
		t.Errorf("Expected table from failed migration to be rolled back")
	}
	status, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status.Pending) != 1 {
		t.Errorf("Expected failed migration to stay pending, got %+v", status)
	}
}

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (x);\n\nCREATE INDEX i ON a(x);\n")
	want := []string{"CREATE TABLE a (x)", "CREATE INDEX i ON a(x)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
