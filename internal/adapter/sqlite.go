package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"polybackup/internal/archive"
	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// SQLiteAdapter dumps a SQLite database file through the sqlite3 CLI. The
// connection spec's Database field is the path to the database file.
type SQLiteAdapter struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewSQLiteAdapter creates the adapter for SQLite targets.
func NewSQLiteAdapter(logger *logging.Logger) *SQLiteAdapter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &SQLiteAdapter{
		logger: logger,
		now:    time.Now,
	}
}

// Kind implements backup.Adapter.
func (a *SQLiteAdapter) Kind() backup.TargetKind {
	return backup.KindSQLite
}

// Backup implements backup.Adapter.
func (a *SQLiteAdapter) Backup(ctx context.Context, target backup.Target, outputDir string) (*backup.Result, error) {
	dbPath := target.Connection.Database

	if _, err := os.Stat(dbPath); err != nil {
		return nil, backup.NewSourceNotFoundError(fmt.Sprintf("sqlite database %s", dbPath), err)
	}
	if _, err := exec.LookPath("sqlite3"); err != nil {
		return nil, backup.NewDatabaseError("sqlite3 not found in PATH", err)
	}

	algorithm, err := dumpCompression(target)
	if err != nil {
		return nil, backup.NewWriteError("invalid compression configuration", err)
	}
	filename := archive.ArtifactName(target.Name, ".sql"+algorithm.Suffix(), a.now())
	destPath := filepath.Join(outputDir, filename)

	out, err := os.Create(destPath)
	if err != nil {
		return nil, backup.NewWriteError(fmt.Sprintf("failed to create %s", destPath), err)
	}

	compressor, err := archive.NewCompressingWriter(out, algorithm, 0)
	if err != nil {
		out.Close()
		return nil, backup.NewWriteError("failed to initialize compressor", err)
	}
	counter := &countingWriter{w: compressor}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sqlite3", dbPath, sqliteDumpCommand(target))
	cmd.Stdout = counter
	cmd.Stderr = &stderr

	a.logger.Debugf("Dumping sqlite database %s", dbPath)

	runErr := cmd.Run()

	if err := compressor.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := out.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		os.Remove(destPath)
		return nil, backup.NewDatabaseError(
			fmt.Sprintf("sqlite3 dump failed for %s: %s", dbPath, stderr.String()), runErr)
	}

	return &backup.Result{
		OutputFile: filename,
		SizeBytes:  counter.n,
		FileCount:  1,
	}, nil
}

// sqliteDumpCommand picks the meta-command for the requested dump shape.
// .dump emits schema plus data; .schema restricts to DDL.
func sqliteDumpCommand(target backup.Target) string {
	if target.IncludeSchema && !target.IncludeData {
		return ".schema"
	}
	return ".dump"
}
