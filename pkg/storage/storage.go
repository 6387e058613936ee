// Package storage executes record pipelines against a backend. SQLite and
// PostgreSQL are served by SQLStore, MongoDB by MongoStore. Every backend
// answers a pipeline with a single round trip that yields both the page and
// the filtered total.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/log"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/records"
)

var ErrUnsupportedBackend = errors.New("unsupported storage backend")

var logger = log.ForService("storage")

// Page is the outcome of one pipeline: the paged branch and the count
// branch of the same filter prefix.
type Page struct {
	Documents []records.Document
	Total     int64
}

// Store is a record backend.
type Store interface {
	// Execute runs both pipeline branches in one round trip.
	Execute(ctx context.Context, p query.Pipeline) (*Page, error)
	// ReplaceAll swaps the stored records for recs atomically.
	ReplaceAll(ctx context.Context, recs []records.Record) error
	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
	Backend() string
	Close() error
}

// Options tune Open.
type Options struct {
	// SkipMigrations leaves the SQL schema untouched.
	SkipMigrations bool
}

// Open connects to the backend selected in cfg.
func Open(ctx context.Context, cfg *config.Config, opts Options) (Store, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case config.BackendSQLite:
		return OpenSQLite(ctx, sc.SQLitePath, opts)
	case config.BackendPostgres:
		return OpenPostgres(ctx, sc.PostgresDSN, opts)
	case config.BackendMongo:
		return OpenMongo(ctx, sc.MongoURI, sc.MongoDatabase, sc.MongoCollection)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, sc.Backend)
	}
}
