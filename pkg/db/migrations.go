// Package db applies the embedded, per-dialect schema migrations that back
// the SQL record stores.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/rubiojr/fmcsa/pkg/log"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// Supported dialects.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

var logger = log.ForService("db")

// Migration is one versioned schema change.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt string
}

// MigrationStatus lists applied and pending migrations.
type MigrationStatus struct {
	Applied []Migration
	Pending []Migration
}

// MigrationManager applies migrations for one dialect.
type MigrationManager struct {
	db      *sql.DB
	dialect string
	source  fs.FS
}

// NewMigrationManager uses the embedded migrations for dialect.
func NewMigrationManager(db *sql.DB, dialect string) (*MigrationManager, error) {
	sub, err := fs.Sub(migrationsFS, path.Join("migrations", dialect))
	if err != nil {
		return nil, fmt.Errorf("loading %s migrations: %w", dialect, err)
	}
	return NewMigrationManagerFromFS(db, dialect, sub), nil
}

// NewMigrationManagerFromFS reads migrations from the root of source.
func NewMigrationManagerFromFS(db *sql.DB, dialect string, source fs.FS) *MigrationManager {
	return &MigrationManager{db: db, dialect: dialect, source: source}
}

func (m *MigrationManager) ensureTable(ctx context.Context) error {
	ts := "TEXT DEFAULT CURRENT_TIMESTAMP"
	if m.dialect == Postgres {
		ts = "TIMESTAMPTZ DEFAULT now()"
	}
	_, err := m.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS migrations (version INTEGER PRIMARY KEY, applied_at "+ts+")")
	return err
}

func (m *MigrationManager) applied(ctx context.Context) (map[int]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var at sql.NullString
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[version] = at.String
	}
	return applied, rows.Err()
}

// Available returns every migration in source, ordered by version. Files
// are named NNN_description.sql.
func (m *MigrationManager) Available() ([]Migration, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) != 2 {
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		content, err := fs.ReadFile(m.source, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Status reports which migrations have been applied.
func (m *MigrationManager) Status(ctx context.Context) (*MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	available, err := m.Available()
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{}
	for _, mig := range available {
		if at, ok := applied[mig.Version]; ok {
			mig.AppliedAt = at
			status.Applied = append(status.Applied, mig)
		} else {
			status.Pending = append(status.Pending, mig)
		}
	}
	return status, nil
}

// Apply runs every pending migration, each in its own transaction, and
// returns how many were applied.
func (m *MigrationManager) Apply(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	for _, mig := range status.Pending {
		logger.Infof("applying %s migration %03d: %s", m.dialect, mig.Version, mig.Name)
		if err := m.apply(ctx, mig); err != nil {
			return 0, fmt.Errorf("applying migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return len(status.Pending), nil
}

func (m *MigrationManager) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("rollback of migration %d failed: %v", mig.Version, err)
			}
		}
	}()

	for _, stmt := range statements(mig.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing migration %d: %w", mig.Version, err)
		}
	}

	record := "INSERT INTO migrations (version) VALUES (?)"
	if m.dialect == Postgres {
		record = "INSERT INTO migrations (version) VALUES ($1)"
	}
	if _, err := tx.ExecContext(ctx, record, mig.Version); err != nil {
		return fmt.Errorf("recording migration %d: %w", mig.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", mig.Version, err)
	}
	committed = true
	return nil
}

// statements splits a migration file on semicolons that end a line.
func statements(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";\n") {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
