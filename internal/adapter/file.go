package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"polybackup/internal/archive"
	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// FileAdapter backs up plain files and directory trees. Directories are
// serialized into the archive container; single files are copied as-is.
// Both variants optionally pass through gzip.
type FileAdapter struct {
	logger *logging.Logger

	// now is swappable so tests get deterministic artifact names.
	now func() time.Time
}

// NewFileAdapter creates the adapter for file and directory targets.
func NewFileAdapter(logger *logging.Logger) *FileAdapter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &FileAdapter{
		logger: logger,
		now:    time.Now,
	}
}

// Kind implements backup.Adapter.
func (a *FileAdapter) Kind() backup.TargetKind {
	return backup.KindFile
}

// Backup stats the target path to classify it as file or directory, then
// produces one artifact in outputDir.
func (a *FileAdapter) Backup(ctx context.Context, target backup.Target, outputDir string) (*backup.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(target.Path)
	if err != nil {
		return nil, backup.NewSourceNotFoundError(fmt.Sprintf("source path %s", target.Path), err)
	}

	encoder := archive.NewEncoder(archive.FilterConfig{
		Include:          target.Include,
		Exclude:          target.Exclude,
		MaxFileSize:      target.MaxFileSize,
		FollowSymlinks:   target.FollowSymlinks,
		PreserveMetadata: target.PreserveMetadata,
	}, target.Compress, a.logger)

	if info.IsDir() {
		return a.backupDirectory(encoder, target, outputDir)
	}
	return a.backupFile(encoder, target, outputDir)
}

func (a *FileAdapter) backupDirectory(encoder *archive.Encoder, target backup.Target, outputDir string) (*backup.Result, error) {
	ext := ".tar"
	if target.Compress {
		ext = ".tar.gz"
	}
	filename := archive.ArtifactName(target.Name, ext, a.now())

	result, err := encoder.EncodeDir(target.Path, filepath.Join(outputDir, filename))
	if err != nil {
		return nil, backup.NewWriteError(fmt.Sprintf("failed to archive %s", target.Path), err)
	}

	return &backup.Result{
		OutputFile: filename,
		SizeBytes:  result.SizeBytes,
		FileCount:  result.FileCount,
	}, nil
}

func (a *FileAdapter) backupFile(encoder *archive.Encoder, target backup.Target, outputDir string) (*backup.Result, error) {
	ext := filepath.Ext(target.Path)
	if target.Compress {
		ext += ".gz"
	}
	filename := archive.ArtifactName(target.Name, ext, a.now())

	result, err := encoder.EncodeFile(target.Path, filepath.Join(outputDir, filename))
	if err != nil {
		return nil, backup.NewWriteError(fmt.Sprintf("failed to copy %s", target.Path), err)
	}

	return &backup.Result{
		OutputFile: filename,
		SizeBytes:  result.SizeBytes,
		FileCount:  result.FileCount,
	}, nil
}
