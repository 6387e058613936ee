package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/fmcsa/pkg/db"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/records"
)

const insertChunk = 500

// SQLStore keeps records in a relational "records" table.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	sqlDB, err := driver.Open(path, sqliteConnInit)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return newSQLStore(ctx, sqlx.NewDb(sqlDB, sqliteDialect.driver), sqliteDialect, opts)
}

// OpenPostgres connects to the PostgreSQL database at dsn.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*SQLStore, error) {
	xdb, err := sqlx.ConnectContext(ctx, postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return newSQLStore(ctx, xdb, postgresDialect, opts)
}

func newSQLStore(ctx context.Context, xdb *sqlx.DB, d dialect, opts Options) (*SQLStore, error) {
	s := &SQLStore{db: xdb, dialect: d}
	if opts.SkipMigrations {
		return s, nil
	}
	m, err := s.Migrations()
	if err == nil {
		_, err = m.Apply(ctx)
	}
	if err != nil {
		_ = xdb.Close()
		return nil, fmt.Errorf("migrating %s schema: %w", d.name, err)
	}
	return s, nil
}

// Migrations returns the schema migration manager for this store.
func (s *SQLStore) Migrations() (*db.MigrationManager, error) {
	return db.NewMigrationManager(s.db.DB, s.dialect.name)
}

func (s *SQLStore) Backend() string { return s.dialect.name }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM records"); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Execute runs the pipeline as a single statement: the filtered set is
// computed once and both the page and the total are read from it.
func (s *SQLStore) Execute(ctx context.Context, p query.Pipeline) (*Page, error) {
	stmt, args := s.render(p)

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(stmt), args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	page := &Page{Documents: []records.Document{}}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		page.Total = toInt64(row["total"])
		if row["rn"] == nil {
			continue
		}
		doc, err := toDocument(row)
		if err != nil {
			return nil, err
		}
		page.Documents = append(page.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return page, nil
}

// render builds the statement for p. Identifiers only ever come from the
// column allow-list; every value is a placeholder.
func (s *SQLStore) render(p query.Pipeline) (string, []any) {
	var where []string
	var args []any

	for _, m := range p.Filters {
		switch pr := m.Predicate.(type) {
		case query.AnyContains:
			needle := s.dialect.fold(pr.Text)
			var ors []string
			for _, f := range pr.Fields {
				if !records.IsSearchField(f) {
					continue
				}
				ors = append(ors, s.dialect.contains(f))
				args = append(args, needle)
			}
			if len(ors) == 0 {
				where = append(where, "1 = 0")
				continue
			}
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		case query.TimeRange:
			if records.FieldKind(pr.Field) != records.KindTime {
				where = append(where, "1 = 0")
				continue
			}
			if pr.From != nil {
				where = append(where, pr.Field+" >= ?")
				args = append(args, s.dialect.timeArg(*pr.From))
			}
			if pr.Before != nil {
				where = append(where, pr.Field+" < ?")
				args = append(args, s.dialect.timeArg(*pr.Before))
			}
		case query.IntRange:
			if records.FieldKind(pr.Field) != records.KindInt {
				where = append(where, "1 = 0")
				continue
			}
			where = append(where, pr.Field+" >= ? AND "+pr.Field+" <= ?")
			args = append(args, pr.Min, pr.Max)
		}
	}

	var b strings.Builder
	b.WriteString("WITH filtered AS (SELECT * FROM records")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	order := orderBy(p.Project, p.Sort)
	fmt.Fprintf(&b, "), paged AS (SELECT %s, ROW_NUMBER() OVER (ORDER BY %s) AS rn FROM filtered ORDER BY %s LIMIT ? OFFSET ?)",
		projection(p.Project), order, order)
	b.WriteString(" SELECT t.total, paged.* FROM (SELECT COUNT(*) AS total FROM filtered) AS t LEFT JOIN paged ON 1 = 1 ORDER BY paged.rn")

	args = append(args, p.Window.Limit, p.Window.Skip)
	return b.String(), args
}

func projection(p query.Project) string {
	cols := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		switch {
		case f == records.IDField:
			cols = append(cols, "id AS "+records.IDField)
		case records.IsColumn(f):
			cols = append(cols, f)
		}
	}
	if len(cols) == 0 {
		cols = append(cols, "id AS "+records.IDField)
	}
	return strings.Join(cols, ", ")
}

// orderBy sorts on fields that survive the projection, like a document
// store would. Anything else keeps insertion order.
func orderBy(p query.Project, s query.Sort) string {
	dir, nulls := "ASC", "NULLS FIRST"
	if s.Descending {
		dir, nulls = "DESC", "NULLS LAST"
	}

	visible := false
	for _, f := range p.Fields {
		if f == s.Field {
			visible = true
			break
		}
	}
	switch {
	case visible && s.Field == records.IDField:
		return "id " + dir
	case visible && records.IsColumn(s.Field):
		return s.Field + " " + dir + " " + nulls + ", id ASC"
	default:
		return "id ASC"
	}
}

func toDocument(row map[string]any) (records.Document, error) {
	doc := records.Document{}
	for k, v := range row {
		if k == "total" || k == "rn" {
			continue
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		switch {
		case k == records.IDField:
			doc[k] = toInt64(v)
		case v == nil:
			doc[k] = nil
		case records.FieldKind(k) == records.KindTime:
			switch t := v.(type) {
			case time.Time:
				doc[k] = t.UTC()
			case string:
				parsed, err := parseStoredTime(t)
				if err != nil {
					return nil, fmt.Errorf("decoding %s: %w", k, err)
				}
				doc[k] = parsed
			default:
				return nil, fmt.Errorf("decoding %s: unexpected %T", k, v)
			}
		case records.FieldKind(k) == records.KindInt:
			doc[k] = toInt64(v)
		default:
			doc[k] = v
		}
	}
	return doc, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

type recordRow struct {
	CreatedDT            any    `db:"created_dt"`
	DataSourceModifiedDT any    `db:"data_source_modified_dt"`
	EntityType           string `db:"entity_type"`
	OperatingStatus      string `db:"operating_status"`
	LegalName            string `db:"legal_name"`
	DBAName              string `db:"dba_name"`
	PhysicalAddress      string `db:"physical_address"`
	Phone                string `db:"phone"`
	USDOTNumber          *int64 `db:"usdot_number"`
	PowerUnits           *int64 `db:"power_units"`
	MCMXFFNumber         string `db:"mc_mx_ff_number"`
	OutOfServiceDate     any    `db:"out_of_service_date"`
}

func (s *SQLStore) row(r records.Record) recordRow {
	row := recordRow{
		CreatedDT:            s.dialect.timeArg(r.CreatedDT),
		DataSourceModifiedDT: s.dialect.timeArg(r.DataSourceModifiedDT),
		EntityType:           r.EntityType,
		OperatingStatus:      r.OperatingStatus,
		LegalName:            r.LegalName,
		DBAName:              r.DBAName,
		PhysicalAddress:      r.PhysicalAddress,
		Phone:                r.Phone,
		USDOTNumber:          r.USDOTNumber,
		PowerUnits:           r.PowerUnits,
		MCMXFFNumber:         r.MCMXFFNumber,
	}
	if r.OutOfServiceDate != nil {
		row.OutOfServiceDate = s.dialect.timeArg(*r.OutOfServiceDate)
	}
	return row
}

var insertStmt = "INSERT INTO records (" + strings.Join(records.Columns, ", ") +
	") VALUES (:" + strings.Join(records.Columns, ", :") + ")"

// ReplaceAll deletes and reinserts inside one transaction, so readers see
// either the old or the new set.
func (s *SQLStore) ReplaceAll(ctx context.Context, recs []records.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback replace: %v", err)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	for start := 0; start < len(recs); start += insertChunk {
		end := min(start+insertChunk, len(recs))
		batch := make([]recordRow, 0, end-start)
		for _, r := range recs[start:end] {
			batch = append(batch, s.row(r))
		}
		if _, err := tx.NamedExecContext(ctx, insertStmt, batch); err != nil {
			return fmt.Errorf("inserting records %d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	committed = true
	logger.Infof("replaced %s records: %d rows", s.dialect.name, len(recs))
	return nil
}
