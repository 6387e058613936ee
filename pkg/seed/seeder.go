// Package seed loads carrier records from a spreadsheet export and replaces
// the contents of a store with them.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/rubiojr/fmcsa/pkg/log"
	"github.com/rubiojr/fmcsa/pkg/metrics"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

// ErrLocked is returned when another seeder holds the lock.
var ErrLocked = errors.New("another seed is in progress")

const lockFile = "seed.lock"

var logger = log.ForService("seed")

// Seeder replaces the records of a store with the rows of a file. Only one
// seeder per storage directory runs at a time.
type Seeder struct {
	store    storage.Store
	lockPath string
}

// New returns a Seeder writing to store and locking within storageDir.
func New(store storage.Store, storageDir string) *Seeder {
	return &Seeder{
		store:    store,
		lockPath: filepath.Join(storageDir, lockFile),
	}
}

// Run reads path and swaps the stored records for its rows. The store is
// not touched unless the whole file parses. It returns the number of
// records written.
func (s *Seeder) Run(ctx context.Context, path, sheet string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating storage directory: %w", err)
	}
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquiring seed lock: %w", err)
	}
	if !locked {
		return 0, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warnf("failed to release seed lock: %v", err)
		}
	}()

	start := time.Now()
	logger.Infof("reading records from %s", path)
	recs, err := ReadFile(path, sheet)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	logger.Debugf("parsed %d records in %s", len(recs), time.Since(start))

	if err := s.store.ReplaceAll(ctx, recs); err != nil {
		return 0, fmt.Errorf("replacing records: %w", err)
	}
	metrics.SeededRecords.Set(float64(len(recs)))
	logger.Infof("seeded %d records into %s in %s", len(recs), s.store.Backend(), time.Since(start).Round(time.Millisecond))
	return len(recs), nil
}
