package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/db"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply SQL schema migrations or create MongoDB indexes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return RunMigrations(ctx, c.String("config"), c.Bool("status"))
		},
	}
}

// RunMigrations handles the migration process (exported for testing)
func RunMigrations(ctx context.Context, configPath string, statusOnly bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(ctx, cfg, storage.Options{SkipMigrations: true})
	if err != nil {
		return err
	}
	defer closeStore(store)

	switch s := store.(type) {
	case *storage.MongoStore:
		if statusOnly {
			fmt.Println("MongoDB has no schema migrations")
			return nil
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			return err
		}
		fmt.Println("MongoDB indexes are in place")
		return nil
	case *storage.SQLStore:
		manager, err := s.Migrations()
		if err != nil {
			return err
		}
		if statusOnly {
			return showMigrationStatus(ctx, manager)
		}
		n, err := manager.Apply(ctx)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		fmt.Printf("Applied %d migrations to %s\n", n, s.Backend())
		return nil
	default:
		return fmt.Errorf("%w: %s", storage.ErrUnsupportedBackend, store.Backend())
	}
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(ctx context.Context, manager *db.MigrationManager) error {
	status, err := manager.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Applied migrations: %d\n", len(status.Applied))
	for _, migration := range status.Applied {
		appliedTime := migration.AppliedAt
		if appliedTime == "" {
			appliedTime = "unknown"
		}
		fmt.Printf("  ✓ %03d: %s (applied: %s)\n", migration.Version, migration.Name, appliedTime)
	}

	fmt.Printf("Pending migrations: %d\n", len(status.Pending))
	for _, migration := range status.Pending {
		fmt.Printf("  • %03d: %s\n", migration.Version, migration.Name)
	}

	if len(status.Pending) == 0 {
		fmt.Println("  (none - database is up to date)")
	}

	return nil
}
