package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"polybackup/internal/logging"
)

// RetentionManager prunes stale artifacts from an output directory. The
// pass works off the filesystem state, not any in-memory result set, so it
// also reaps artifacts left behind by prior runs sharing the directory.
//
// Every step is best-effort: stat and delete failures are logged and
// skipped, and nothing ever propagates to the caller.
type RetentionManager struct {
	outputPath string
	policy     RetentionPolicy
	logger     *logging.Logger
}

// NewRetentionManager creates a retention manager for one output directory.
func NewRetentionManager(outputPath string, policy RetentionPolicy, logger *logging.Logger) *RetentionManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &RetentionManager{
		outputPath: outputPath,
		policy:     policy,
		logger:     logger,
	}
}

type artifactInfo struct {
	path    string
	modTime time.Time
}

// Cleanup applies the retention policy and returns how many files were
// removed. The count axis keeps the N newest candidates; the age axis
// removes anything older than the configured number of days. When both are
// set the deletion sets are unioned.
func (m *RetentionManager) Cleanup() int {
	started := time.Now()

	if !m.policy.Enabled() {
		return 0
	}

	entries, err := os.ReadDir(m.outputPath)
	if err != nil {
		cleanupErr := NewCleanupError("failed to list output directory", err).WithContext("path", m.outputPath)
		m.logger.LogCleanup(m.outputPath, 0, time.Since(started), cleanupErr)
		return 0
	}

	var candidates []artifactInfo
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			m.logger.WithFields(map[string]interface{}{
				"file":  entry.Name(),
				"error": err.Error(),
			}).Warn("Skipping unstatable artifact during cleanup")
			continue
		}

		candidates = append(candidates, artifactInfo{
			path:    filepath.Join(m.outputPath, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	// Newest first; ties broken by path so the order is stable.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].path < candidates[j].path
		}
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	doomed := make(map[string]struct{})

	if m.policy.Count != nil && len(candidates) > *m.policy.Count {
		for _, candidate := range candidates[*m.policy.Count:] {
			doomed[candidate.path] = struct{}{}
		}
	}

	if m.policy.MaxAgeDays != nil {
		cutoff := time.Now().AddDate(0, 0, -*m.policy.MaxAgeDays)
		for _, candidate := range candidates {
			if candidate.modTime.Before(cutoff) {
				doomed[candidate.path] = struct{}{}
			}
		}
	}

	removed := 0
	for _, candidate := range candidates {
		if _, marked := doomed[candidate.path]; !marked {
			continue
		}

		if err := os.Remove(candidate.path); err != nil {
			m.logger.WithFields(map[string]interface{}{
				"file":  candidate.path,
				"error": err.Error(),
			}).Warn("Failed to remove expired artifact")
			continue
		}

		m.logger.Debugf("Removed expired artifact %s", candidate.path)
		removed++
	}

	m.logger.LogCleanup(m.outputPath, removed, time.Since(started), nil)
	return removed
}

// isArtifactName reports whether a directory entry looks like a backup
// artifact. This is a heuristic over filenames: dump and archive extensions,
// or the underscore the artifact naming convention always inserts before
// the timestamp.
func isArtifactName(name string) bool {
	for _, suffix := range []string{".sql", ".sql.gz", ".sql.zst", ".sql.lz4", ".tar", ".tar.gz"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return strings.Contains(name, "_")
}
