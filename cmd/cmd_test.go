package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/records"
	"github.com/rubiojr/fmcsa/pkg/search"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

func writeConfig(t *testing.T, dir string, defaultLimit int) string {
	t.Helper()
	for _, env := range []string{config.EnvBackend, config.EnvServerPort, config.EnvMongoURI, config.EnvPostgresDSN, config.EnvRecordPath} {
		t.Setenv(env, "")
	}
	t.Setenv("XDG_DATA_HOME", dir)
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("storage_dir = %q\n\n[query]\ndefault_limit = %d\n", dir, defaultLimit)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestRunMigrationsSQLite(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, 20)

	if err := RunMigrations(context.Background(), configPath, true); err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if err := RunMigrations(context.Background(), configPath, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := RunMigrations(context.Background(), configPath, false); err != nil {
		t.Fatalf("Second apply failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "fmcsa.db")); err != nil {
		t.Errorf("Expected database in storage dir: %v", err)
	}
}

func TestSeedAndSearch(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, 20)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	csvPath := filepath.Join(dir, "records.csv")
	csv := "created_dt,data_source_modified_dt,legal_name,power_units\n" +
		"2024-01-15,2024-01-20,Acme Freight,4\n" +
		"2024-01-16,2024-01-20,Beta Hauling,2\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}

	ctx := context.Background()
	if err := seedRecords(ctx, cfg, csvPath, ""); err != nil {
		t.Fatalf("seedRecords failed: %v", err)
	}
	if err := searchRecords(ctx, configPath, url.Values{query.ParamQuery: {"acme"}}, true); err != nil {
		t.Fatalf("searchRecords failed: %v", err)
	}

	store, err := openStore(ctx, cfg, storage.Options{})
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer closeStore(store)
	n, err := store.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Expected 2 stored records, got %d (%v)", n, err)
	}
}

func TestDryRun(t *testing.T) {
	if err := dryRun(filepath.Join(t.TempDir(), "missing.csv"), ""); err == nil {
		t.Errorf("Expected error for a missing file")
	}
}

func TestRenderResults(t *testing.T) {
	when := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	resp := search.Success(&storage.Page{
		Documents: []records.Document{{
			records.IDField:    int64(7),
			records.LegalName:  "Acme Freight",
			records.DBAName:    "",
			records.CreatedDT:  when,
			records.PowerUnits: nil,
		}},
		Total: 12,
	})
	values := url.Values{query.ParamQuery: {"acme"}, query.ParamPage: {"abc"}}
	out := renderResults(resp, query.Parse(values), query.Paginate(nil, nil, query.DefaultLimits()))

	for _, want := range []string{
		"query=acme",
		"Legal Name: ",
		"Acme Freight",
		"2024-01-15T10:00:00Z",
		"Showing 1 of 12 records (page 1, 20 per page)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "page=abc") {
		t.Errorf("Unparsable page must not be echoed:\n%s", out)
	}
}

func TestReloadLimits(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, 7)

	svc := search.NewService(nil, search.Options{Limits: query.DefaultLimits()})
	reloadLimits(configPath, svc)
	if got := svc.Limits().DefaultLimit; got != 7 {
		t.Errorf("Expected default limit 7, got %d", got)
	}

	if err := os.WriteFile(configPath, []byte("[query]\ndefault_limit = -1\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	reloadLimits(configPath, svc)
	if got := svc.Limits().DefaultLimit; got != 7 {
		t.Errorf("Invalid config must keep the previous limits, got %d", got)
	}
}

func TestWatchConfigReloads(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, 20)
	svc := search.NewService(nil, search.Options{Limits: query.DefaultLimits()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchConfig(ctx, configPath, svc)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(5 * time.Second)
	for svc.Limits().DefaultLimit != 42 {
		if time.Now().After(deadline) {
			t.Fatalf("Limits were not reloaded, got %+v", svc.Limits())
		}
		writeConfig(t, dir, 42)
		time.Sleep(250 * time.Millisecond)
	}
}
