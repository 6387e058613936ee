package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/fmcsa/pkg/api"
	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/search"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the records API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if c.IsSet("host") {
				cfg.Server.Host = c.String("host")
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}
			return serve(ctx, cfg, c.String("config"))
		},
	}
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains in-flight
// requests for up to the configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, storage.Options{})
	if err != nil {
		return err
	}
	defer closeStore(store)

	svc := newSearchService(store, cfg)
	apiServer := api.NewServer(svc, store)

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(mux, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("serving %s records on http://%s", store.Backend(), server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		watchConfig(gctx, configPath, svc)
		return nil
	})

	return g.Wait()
}

// watchConfig reloads the [query] limits whenever the config file changes.
// Other settings need a restart.
func watchConfig(ctx context.Context, configPath string, svc *search.Service) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
		return
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(configPath); err != nil {
		logger.Warnf("failed to watch config file %s: %v", configPath, err)
		return
	}
	logger.Infof("watching config file for changes: %s", configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Editors often replace the file, which drops the watch.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reloadLimits(configPath, svc)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

func reloadLimits(configPath string, svc *search.Service) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Errorf("failed to reload configuration: %v", err)
		return
	}
	limits := limitsFromConfig(cfg)
	svc.SetLimits(limits)
	logger.Infof("query limits reloaded: default_limit=%d max_limit=%d", limits.DefaultLimit, limits.MaxLimit)
}
