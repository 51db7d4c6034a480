package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateFS(Embedded, embeddedDir); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("on-disk migrations invalid: %v", err)
	}
}

func TestEntriesMigrationShape(t *testing.T) {
	matches, err := fs.Glob(Embedded, "migrations/*_create_storefront_entries.sql")
	if err != nil || len(matches) == 0 {
		t.Fatalf("entries migration not found: %v", err)
	}
	data, err := fs.ReadFile(Embedded, matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS storefront_entries",
		"entry_key  TEXT PRIMARY KEY",
		"DROP TABLE IF EXISTS storefront_entries",
	} {
		if !strings.Contains(string(data), sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateFSRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := ValidateFS(fsys, "migrations"); err == nil {
		t.Fatal("expected invalid filename error")
	}
	fsys = fstest.MapFS{
		"migrations/20260101000000_things.sql": {Data: []byte("-- +goose Up\n")},
	}
	if err := ValidateFS(fsys, "migrations"); err == nil {
		t.Fatal("expected missing down marker error")
	}
}

func TestRunEmbeddedOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	if err := RunEmbedded(context.Background(), sqlDB, "sqlite3", "up"); err != nil {
		t.Fatalf("RunEmbedded: %v", err)
	}
	if !conn.Migrator().HasTable("storefront_entries") {
		t.Fatal("expected storefront_entries table")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Cart Index!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(filepath.Base(path), "_add_cart_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("migration not written: %v", err)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationRefusesOverwrite(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	clock = func() time.Time { return fixed }
	t.Cleanup(func() { clock = time.Now })

	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "cart ttl")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if filepath.Base(path) != "20260301093000_cart_ttl.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := CreateSQLMigration(dir, "cart ttl"); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty name to fail")
	}
}
