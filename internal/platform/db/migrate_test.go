package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "002_audit.sql", "CREATE TABLE b (id INT);")
	writeFile(t, dir, "001_core.sql", "CREATE TABLE a (id INT);")
	writeFile(t, dir, "README.md", "not a migration")
	writeFile(t, dir, "notes.sql", "no numeric prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations not sorted: %+v", migrations)
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("unexpected name: %s", migrations[0].Name)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
