package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/redarch",
		LogDir:  "/home/user/.local/share/redarch/log",
		Database: DatabaseConfig{
			Host: "db.internal", Port: 5433, Name: "archive",
			User: "loader", Password: "secret", SSLMode: "require",
			MaxConns: 16, StatementTimeoutSeconds: 120,
		},
		Source: SourceConfig{
			Type: "s3", S3Bucket: "dumps", S3Prefix: "reddit/",
			S3Region: "us-east-1", SpoolDir: "/tmp/spool",
		},
		Import: ImportConfig{BatchSize: 2000, Workers: 4, QueueDepth: 8},
		Export: ExportConfig{OutputDir: "/data/export"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Source != original.Source {
		t.Errorf("Source = %+v, want %+v", got.Source, original.Source)
	}
	if got.Import != original.Import {
		t.Errorf("Import = %+v, want %+v", got.Import, original.Import)
	}
	if got.Export != original.Export {
		t.Errorf("Export = %+v, want %+v", got.Export, original.Export)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/redarch")

	if cfg.BaseDir != "/data/redarch" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/redarch")
	}
	if cfg.LogDir != "/data/redarch/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/redarch/log")
	}
	if cfg.Database.Port != 5432 || cfg.Database.Name != "redarch" {
		t.Errorf("Database defaults = %+v", cfg.Database)
	}
	if cfg.Source.Type != "filesystem" {
		t.Errorf("Source.Type = %q, want filesystem", cfg.Source.Type)
	}
	if cfg.Source.Dir != "/data/redarch/dumps" {
		t.Errorf("Source.Dir = %q", cfg.Source.Dir)
	}
	if cfg.Database.StatementTimeoutSeconds != 60 {
		t.Errorf("StatementTimeoutSeconds = %d, want 60", cfg.Database.StatementTimeoutSeconds)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "redarch",
		User: "redarch", Password: "p@ss word", SSLMode: "disable",
	}
	dsn := cfg.DSN()

	if !strings.HasPrefix(dsn, "postgres://") {
		t.Errorf("DSN scheme = %q", dsn)
	}
	if !strings.Contains(dsn, "localhost:5432") {
		t.Errorf("DSN missing host: %q", dsn)
	}
	if !strings.Contains(dsn, "/redarch") {
		t.Errorf("DSN missing database: %q", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("DSN missing sslmode: %q", dsn)
	}
	if strings.Contains(dsn, "p@ss word") {
		t.Errorf("DSN password not escaped: %q", dsn)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "redarch.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "redarch.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "redarch.toml")
		cfg := NewConfig(dir)
		cfg.Database.Name = "read-test"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Name != "read-test" {
			t.Errorf("Database.Name = %q, want %q", got.Database.Name, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/redarch.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
