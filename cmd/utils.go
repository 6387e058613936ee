package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/log"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/search"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

var logger = log.ForService("cmd")

// openStore connects to the configured backend.
func openStore(ctx context.Context, cfg *config.Config, opts storage.Options) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}
	logger.Debugf("opened %s store", store.Backend())
	return store, nil
}

// closeStore closes store, logging any error.
func closeStore(store storage.Store) {
	if err := store.Close(); err != nil {
		logger.Warnf("failed to close %s store: %v", store.Backend(), err)
	}
}

func limitsFromConfig(cfg *config.Config) query.Limits {
	return query.Limits{
		DefaultLimit: cfg.Query.DefaultLimit,
		MaxLimit:     cfg.Query.MaxLimit,
	}
}

func newSearchService(store storage.Store, cfg *config.Config) *search.Service {
	return search.NewService(store, search.Options{
		Backend: store.Backend(),
		Timeout: cfg.Storage.QueryTimeout.Duration,
		Limits:  limitsFromConfig(cfg),
	})
}
