package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"polybackup/internal/logging"
)

// LocalProvider mirrors artifacts into a second directory, typically on a
// different mount.
type LocalProvider struct {
	basePath string
	logger   *logging.Logger
}

// NewLocalProvider creates a local replication provider rooted at basePath.
func NewLocalProvider(basePath string, logger *logging.Logger) (*LocalProvider, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local replication path is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create replication directory %s: %w", basePath, err)
	}

	return &LocalProvider{basePath: basePath, logger: logger}, nil
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return "local" }

// Replicate implements Provider. The copy goes through a temporary file and
// a rename so a crash mid-copy never leaves a truncated artifact behind.
func (p *LocalProvider) Replicate(ctx context.Context, localPath, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(filepath.Join(localPath, filename))
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(p.basePath, filename)
	tmpPath := destPath + ".partial"

	dest, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create replica: %w", err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush replica: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize replica: %w", err)
	}

	return nil
}
