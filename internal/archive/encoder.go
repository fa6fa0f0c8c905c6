package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"polybackup/internal/logging"
)

// FrameHeader describes one file inside the archive container. It is the
// JSON header written in front of every payload. The metadata fields are
// populated only when the encoder runs with PreserveMetadata.
type FrameHeader struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime,omitempty"`
	Mode  uint32 `json:"mode,omitempty"`
	UID   *int   `json:"uid,omitempty"`
	GID   *int   `json:"gid,omitempty"`
}

// FilterConfig controls which files the encoder admits into an archive.
type FilterConfig struct {
	Include          []string
	Exclude          []string
	MaxFileSize      int64 // bytes, 0 disables the limit
	FollowSymlinks   bool
	PreserveMetadata bool
}

// EncodeResult reports what an encoding operation produced. SizeBytes is the
// total of all frame bytes (headers plus payloads) measured before any
// compression is applied.
type EncodeResult struct {
	SizeBytes int64
	FileCount int
}

// Encoder serializes a directory tree (or a single file) into the archive
// container format: a flat sequence of frames, each a 4-byte big-endian
// header length, a UTF-8 JSON header, and the raw file bytes. There is no
// magic number, no index and no trailer; a reader consumes frames until
// end of stream.
//
// The encoder holds at most one file in memory at a time, so peak memory is
// bounded by the largest admitted file rather than the tree size.
type Encoder struct {
	filter   FilterConfig
	compress bool
	logger   *logging.Logger
}

// NewEncoder creates an encoder with the given filter settings. When
// compress is true the whole frame stream is passed through gzip.
func NewEncoder(filter FilterConfig, compress bool, logger *logging.Logger) *Encoder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Encoder{
		filter:   filter,
		compress: compress,
		logger:   logger,
	}
}

// EncodeDir walks root and streams every admitted file into an archive at
// dest. Unreadable subdirectories and unreadable files are skipped with a
// log line; failing to open root or dest, or any write to dest failing, is
// fatal to the operation.
func (e *Encoder) EncodeDir(root, dest string) (*EncodeResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive %s: %w", dest, err)
	}

	var sink io.Writer = out
	var gz *gzip.Writer
	if e.compress {
		gz = gzip.NewWriter(out)
		sink = gz
	}

	result := &EncodeResult{}
	walkErr := e.walkDir(root, "", sink, result)

	if gz != nil {
		if err := gz.Close(); err != nil && walkErr == nil {
			walkErr = fmt.Errorf("failed to flush compressed stream: %w", err)
		}
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("failed to close archive %s: %w", dest, err)
	}

	if walkErr != nil {
		return nil, walkErr
	}
	return result, nil
}

// EncodeFile copies a single file to dest, optionally through the same gzip
// filter the directory variant uses. When PreserveMetadata is set a JSON
// sidecar is written at <dest>.meta; sidecar failures are logged, never
// fatal. The reported size is the source byte count before compression.
func (e *Encoder) EncodeFile(src, dest string) (*EncodeResult, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	var sink io.Writer = out
	var gz *gzip.Writer
	if e.compress {
		gz = gzip.NewWriter(out)
		sink = gz
	}

	copied, copyErr := io.Copy(sink, in)

	if gz != nil {
		if err := gz.Close(); err != nil && copyErr == nil {
			copyErr = fmt.Errorf("failed to flush compressed stream: %w", err)
		}
	}
	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("failed to close %s: %w", dest, err)
	}

	if copyErr != nil {
		return nil, copyErr
	}

	if e.filter.PreserveMetadata {
		if err := writeMetadataSidecar(dest+".meta", info); err != nil {
			e.logger.WithFields(map[string]interface{}{
				"file":  src,
				"error": err.Error(),
			}).Warn("Failed to write metadata sidecar")
		}
	}

	return &EncodeResult{SizeBytes: copied, FileCount: 1}, nil
}

// walkDir recurses through absDir in directory-listing order. relDir is the
// forward-slash path of absDir relative to the walk root ("" at the root).
// Only write errors propagate; everything else is skipped.
func (e *Encoder) walkDir(absDir, relDir string, sink io.Writer, result *EncodeResult) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if relDir == "" {
			return fmt.Errorf("failed to read source root %s: %w", absDir, err)
		}
		e.logger.WithFields(map[string]interface{}{
			"directory": absDir,
			"error":     err.Error(),
		}).Warn("Skipping unreadable directory")
		return nil
	}

	for _, entry := range entries {
		rel := entry.Name()
		if relDir != "" {
			rel = relDir + "/" + entry.Name()
		}
		abs := filepath.Join(absDir, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			if !e.filter.FollowSymlinks {
				e.logger.Debugf("Skipping symlink %s", rel)
				continue
			}
			resolved, err := os.Stat(abs)
			if err != nil {
				e.logger.WithFields(map[string]interface{}{
					"path":  rel,
					"error": err.Error(),
				}).Warn("Skipping broken symlink")
				continue
			}
			if resolved.IsDir() {
				if Match(rel, e.filter.Exclude) {
					continue
				}
				if err := e.walkDir(abs, rel, sink, result); err != nil {
					return err
				}
			} else if err := e.writeFrame(abs, rel, resolved, sink, result); err != nil {
				return err
			}
			continue
		}

		if entry.IsDir() {
			if Match(rel, e.filter.Exclude) {
				continue
			}
			if err := e.walkDir(abs, rel, sink, result); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			e.logger.WithFields(map[string]interface{}{
				"path":  rel,
				"error": err.Error(),
			}).Warn("Skipping unreadable file")
			continue
		}

		if err := e.writeFrame(abs, rel, info, sink, result); err != nil {
			return err
		}
	}

	return nil
}

// writeFrame applies the file-level filters and, if the file is admitted,
// emits one frame. Read errors skip the file; write errors are fatal.
func (e *Encoder) writeFrame(abs, rel string, info fs.FileInfo, sink io.Writer, result *EncodeResult) error {
	if !Admitted(rel, e.filter.Include, e.filter.Exclude) {
		return nil
	}

	if e.filter.MaxFileSize > 0 && info.Size() > e.filter.MaxFileSize {
		e.logger.Debugf("Skipping %s: size %d exceeds limit %d", rel, info.Size(), e.filter.MaxFileSize)
		return nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"path":  rel,
			"error": err.Error(),
		}).Warn("Skipping unreadable file")
		return nil
	}

	header := FrameHeader{
		Path: rel,
		Size: int64(len(data)),
	}
	if e.filter.PreserveMetadata {
		header.Mtime = info.ModTime().Unix()
		header.Mode = uint32(info.Mode().Perm())
		if uid, gid, ok := fileOwner(info); ok {
			header.UID = &uid
			header.GID = &gid
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to encode frame header for %s: %w", rel, err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(headerBytes)))

	for _, chunk := range [][]byte{lenBuf[:], headerBytes, data} {
		if _, err := sink.Write(chunk); err != nil {
			return fmt.Errorf("failed to write frame for %s: %w", rel, err)
		}
	}

	result.SizeBytes += int64(4 + len(headerBytes) + len(data))
	result.FileCount++
	return nil
}

// FileMetadata is the JSON sidecar persisted next to single-file artifacts
// when metadata preservation is requested.
type FileMetadata struct {
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime"`
	Atime int64  `json:"atime"`
	Mode  uint32 `json:"mode"`
	UID   *int   `json:"uid,omitempty"`
	GID   *int   `json:"gid,omitempty"`
}

func writeMetadataSidecar(path string, info fs.FileInfo) error {
	meta := FileMetadata{
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
		Atime: fileAccessTime(info).Unix(),
		Mode:  uint32(info.Mode().Perm()),
	}
	if uid, gid, ok := fileOwner(info); ok {
		meta.UID = &uid
		meta.GID = &gid
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata sidecar: %w", err)
	}

	return nil
}
