package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"polybackup/internal/archive"
	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// PostgresAdapter produces a SQL dump of a PostgreSQL database by driving
// pg_dump and streaming its stdout into the artifact, optionally through
// gzip. Authentication is passed via PGPASSWORD so no interactive prompt
// can block the batch.
type PostgresAdapter struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewPostgresAdapter creates the adapter for PostgreSQL targets.
func NewPostgresAdapter(logger *logging.Logger) *PostgresAdapter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &PostgresAdapter{
		logger: logger,
		now:    time.Now,
	}
}

// Kind implements backup.Adapter.
func (a *PostgresAdapter) Kind() backup.TargetKind {
	return backup.KindPostgreSQL
}

// Backup implements backup.Adapter.
func (a *PostgresAdapter) Backup(ctx context.Context, target backup.Target, outputDir string) (*backup.Result, error) {
	if _, err := exec.LookPath("pg_dump"); err != nil {
		return nil, backup.NewDatabaseError("pg_dump not found in PATH", err)
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
	cmd := exec.CommandContext(ctx, "pg_dump", pgDumpArgs(target)...)
	cmd.Stdout = counter
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "PGPASSWORD="+target.Connection.Password)

	a.logger.Debugf("Running pg_dump for %s", target.Connection.Database)

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
			fmt.Sprintf("pg_dump failed for %s: %s", target.Connection.Database, stderr.String()), runErr)
	}

	return &backup.Result{
		OutputFile: filename,
		SizeBytes:  counter.n,
		FileCount:  1,
	}, nil
}

// pgDumpArgs builds the pg_dump invocation for a target. The schema/data
// flags map onto pg_dump's --schema-only/--data-only; table filters become
// repeated -t selectors.
func pgDumpArgs(target backup.Target) []string {
	conn := target.Connection

	args := []string{"-d", conn.Database, "--no-password"}
	if conn.Host != "" {
		args = append(args, "-h", conn.Host)
	}
	if conn.Port != 0 {
		args = append(args, "-p", strconv.Itoa(conn.Port))
	}
	if conn.User != "" {
		args = append(args, "-U", conn.User)
	}

	if target.IncludeSchema && !target.IncludeData {
		args = append(args, "--schema-only")
	}
	if target.IncludeData && !target.IncludeSchema {
		args = append(args, "--data-only")
	}

	for _, table := range target.TableFilter {
		args = append(args, "-t", table)
	}

	return args
}

// countingWriter tracks how many bytes pass through before compression.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
