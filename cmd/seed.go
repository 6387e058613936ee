package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/seed"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

// SeedCommand creates the seed command
func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Replace stored records with the rows of an FMCSA export (.xlsx or .csv)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Spreadsheet to load (default: seed.path or $" + config.EnvRecordPath + ")",
			},
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "Worksheet name (default: first sheet)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Parse the file and print the first records without touching the store",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			path := cfg.Seed.Path
			if c.IsSet("file") {
				path = c.String("file")
			}
			sheet := cfg.Seed.Sheet
			if c.IsSet("sheet") {
				sheet = c.String("sheet")
			}
			if path == "" {
				return errors.New("no input file: pass --file or set seed.path")
			}
			if c.Bool("dry-run") {
				return dryRun(path, sheet)
			}
			return seedRecords(ctx, cfg, path, sheet)
		},
	}
}

func seedRecords(ctx context.Context, cfg *config.Config, path, sheet string) error {
	store, err := openStore(ctx, cfg, storage.Options{})
	if err != nil {
		return err
	}
	defer closeStore(store)

	n, err := seed.New(store, cfg.StorageDir).Run(ctx, path, sheet)
	if err != nil {
		return fmt.Errorf("seeding records: %w", err)
	}
	fmt.Printf("Seeded %d records into %s\n", n, store.Backend())
	return nil
}

const dryRunPreview = 3

func dryRun(path, sheet string) error {
	recs, err := seed.ReadFile(path, sheet)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	fmt.Printf("Parsed %d records from %s\n", len(recs), path)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range recs[:min(dryRunPreview, len(recs))] {
		if err := enc.Encode(r.Values()); err != nil {
			return err
		}
	}
	return nil
}
