package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrations_PairedUpDown(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "files")
	if err != nil {
		t.Fatalf("ReadDir(files) failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migration files")
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("migration file %q is neither .up.sql nor .down.sql", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %q has no matching down file", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %q has no matching up file", base)
		}
	}
}

func TestGetLatestVersion(t *testing.T) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		t.Fatalf("iofs.New() failed: %v", err)
	}
	defer src.Close()

	version, err := getLatestVersion(src)
	if err != nil {
		t.Fatalf("getLatestVersion() failed: %v", err)
	}
	if version < 1 {
		t.Errorf("getLatestVersion() = %d, want at least 1", version)
	}
}

func TestInitialMigration_CreatesCoreTables(t *testing.T) {
	content, err := fs.ReadFile(migrationFiles, "files/0001_init.up.sql")
	if err != nil {
		t.Fatalf("ReadFile(0001_init.up.sql) failed: %v", err)
	}

	sql := string(content)
	for _, table := range []string{"posts", "comments", "users", "checkpoints"} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Errorf("initial migration does not create table %q", table)
		}
	}
	if !strings.Contains(sql, "USING gin (search_vector)") {
		t.Error("initial migration does not create full-text indexes")
	}
}
