package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"polybackup/internal/backup"
)

func TestLocalProviderReplicate(t *testing.T) {
	outputDir := t.TempDir()
	replicaDir := filepath.Join(t.TempDir(), "replica")

	artifact := "docs_2026-01-01T00-00-00Z.tar.gz"
	if err := os.WriteFile(filepath.Join(outputDir, artifact), []byte("payload"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	provider, err := NewLocalProvider(replicaDir, nil)
	if err != nil {
		t.Fatalf("NewLocalProvider() error = %v", err)
	}

	if err := provider.Replicate(context.Background(), outputDir, artifact); err != nil {
		t.Fatalf("Replicate() error = %v", err)
	}

	copied, err := os.ReadFile(filepath.Join(replicaDir, artifact))
	if err != nil {
		t.Fatalf("replica missing: %v", err)
	}
	if string(copied) != "payload" {
		t.Errorf("replica content = %q, want %q", copied, "payload")
	}

	// No .partial temp file may survive a successful copy.
	if _, err := os.Stat(filepath.Join(replicaDir, artifact+".partial")); !os.IsNotExist(err) {
		t.Error("temporary file left behind after replication")
	}
}

func TestLocalProviderMissingArtifact(t *testing.T) {
	provider, err := NewLocalProvider(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocalProvider() error = %v", err)
	}

	if err := provider.Replicate(context.Background(), t.TempDir(), "absent.sql"); err == nil {
		t.Error("Replicate() of a missing artifact returned nil error")
	}
}

func TestNewProviderSelection(t *testing.T) {
	tests := []struct {
		name    string
		config  *backup.ReplicationConfig
		wantErr bool
	}{
		{
			name:    "local provider",
			config:  &backup.ReplicationConfig{Provider: "local", Path: filepath.Join(os.TempDir(), "repl-test")},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			config:  &backup.ReplicationConfig{Provider: "ftp"},
			wantErr: true,
		},
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReplicateSummarySkipsFailures(t *testing.T) {
	outputDir := t.TempDir()
	replicaDir := filepath.Join(t.TempDir(), "replica")

	if err := os.WriteFile(filepath.Join(outputDir, "good_a.sql"), []byte("a"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	provider, err := NewLocalProvider(replicaDir, nil)
	if err != nil {
		t.Fatalf("NewLocalProvider() error = %v", err)
	}

	summary := backup.NewSummary(time.Now(), []backup.Result{
		{Name: "good", Success: true, OutputFile: "good_a.sql"},
		{Name: "bad", Success: false},
		{Name: "gone", Success: true, OutputFile: "never-written.sql"},
	}, time.Second)

	replicated := ReplicateSummary(context.Background(), provider, outputDir, summary, nil)
	if replicated != 1 {
		t.Errorf("ReplicateSummary() = %d, want 1", replicated)
	}
}
