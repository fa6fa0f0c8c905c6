// Package adapter implements the per-backend backup adapters: plain files
// and directory trees through the archive encoder, and SQL dumps for the
// SQLite, PostgreSQL and MySQL backends.
package adapter

import (
	"polybackup/internal/archive"
	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// All returns one adapter per supported target kind, ready to register on a
// runner.
func All(logger *logging.Logger) []backup.Adapter {
	return []backup.Adapter{
		NewFileAdapter(logger),
		NewSQLiteAdapter(logger),
		NewPostgresAdapter(logger),
		NewMySQLAdapter(logger),
	}
}

// dumpCompression resolves the compression algorithm for a database dump.
// The explicit compression field wins; the compress flag is gzip shorthand.
func dumpCompression(target backup.Target) (archive.Algorithm, error) {
	if target.Compression != "" {
		return archive.ParseAlgorithm(target.Compression)
	}
	if target.Compress {
		return archive.AlgorithmGzip, nil
	}
	return archive.AlgorithmNone, nil
}

