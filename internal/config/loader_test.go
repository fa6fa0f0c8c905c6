package config

import (
	"os"
	"path/filepath"
	"testing"

	"polybackup/internal/backup"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "polybackup.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
output_path: /var/backups
verbose: true
retention:
  count: 5
  max_age_days: 30
targets:
  - name: app-db
    kind: mysql
    connection:
      host: db.internal
      user: backup
      database: app
    table_filter: ["users", "orders"]
  - name: configs
    kind: file
    path: /etc/app
    compress: true
    exclude: ["*.sock"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputPath != "/var/backups" {
		t.Errorf("OutputPath = %q, want /var/backups", cfg.OutputPath)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
	if cfg.Retention == nil || cfg.Retention.Count == nil || *cfg.Retention.Count != 5 {
		t.Errorf("Retention.Count not loaded: %+v", cfg.Retention)
	}
	if cfg.Retention.MaxAgeDays == nil || *cfg.Retention.MaxAgeDays != 30 {
		t.Errorf("Retention.MaxAgeDays not loaded: %+v", cfg.Retention)
	}

	if len(cfg.Targets) != 2 {
		t.Fatalf("loaded %d targets, want 2", len(cfg.Targets))
	}

	db := cfg.Targets[0]
	if db.Kind != backup.KindMySQL || db.Connection.Host != "db.internal" {
		t.Errorf("database target = %+v", db)
	}
	if db.Connection.Port != 3306 {
		t.Errorf("mysql default port = %d, want 3306", db.Connection.Port)
	}
	if !db.IncludeSchema || !db.IncludeData {
		t.Error("database target defaults should include schema and data")
	}

	files := cfg.Targets[1]
	if files.Kind != backup.KindFile || !files.Compress || len(files.Exclude) != 1 {
		t.Errorf("file target = %+v", files)
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
output_path: /var/backups
targets:
  - name: same
    kind: file
    path: /etc/a
  - name: same
    kind: file
    path: /etc/b
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted duplicate target names")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, `
output_path: /var/backups
targets:
  - name: odd
    kind: oracle
    connection:
      database: app
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted an unknown target kind")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() of a missing file returned nil error")
	}
}
