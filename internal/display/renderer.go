// Package display renders run summaries and archive listings for the
// terminal.
package display

import (
	"fmt"
	"io"
	"time"

	"polybackup/internal/archive"
	"polybackup/internal/backup"
)

// Renderer writes human-readable reports to a single output stream.
type Renderer struct {
	w       io.Writer
	palette *Palette
}

// NewRenderer creates a renderer. A nil palette gets the default one.
func NewRenderer(w io.Writer, palette *Palette) *Renderer {
	if palette == nil {
		palette = NewPalette(false)
	}

	return &Renderer{w: w, palette: palette}
}

// RenderSummary prints the per-target outcomes and the run totals.
func (r *Renderer) RenderSummary(summary *backup.Summary) {
	fmt.Fprintln(r.w, r.palette.Heading.Sprint("Backup Summary"))
	fmt.Fprintln(r.w, r.palette.Muted.Sprintf("run %s", summary.RunID))
	fmt.Fprintln(r.w)

	for _, result := range summary.Results {
		r.renderResult(result)
	}

	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "%s succeeded, %s failed in %s\n",
		r.palette.Success.Sprintf("%d", summary.SuccessCount),
		r.failureCount(summary),
		summary.TotalDuration.Round(time.Millisecond))
	fmt.Fprintf(r.w, "total artifact size: %s\n", formatBytes(summary.TotalBytes()))

	if summary.FilesRemoved > 0 {
		fmt.Fprintf(r.w, "retention removed %d expired artifact(s)\n", summary.FilesRemoved)
	}
}

func (r *Renderer) renderResult(result backup.Result) {
	if result.Success {
		fmt.Fprintf(r.w, "  %s %s (%s): %s, %s in %s\n",
			r.palette.Success.Sprint("✓"),
			result.Name,
			result.Kind,
			result.OutputFile,
			formatBytes(result.SizeBytes),
			result.Duration.Round(time.Millisecond))
		return
	}

	fmt.Fprintf(r.w, "  %s %s (%s): %s\n",
		r.palette.Failure.Sprint("✗"),
		result.Name,
		result.Kind,
		result.Error)
}

func (r *Renderer) failureCount(summary *backup.Summary) string {
	if summary.FailureCount == 0 {
		return fmt.Sprintf("%d", summary.FailureCount)
	}
	return r.palette.Failure.Sprintf("%d", summary.FailureCount)
}

// RenderArchiveListing prints the frames of an archive, one line per file.
func (r *Renderer) RenderArchiveListing(archivePath string, entries []archive.Entry) {
	fmt.Fprintln(r.w, r.palette.Heading.Sprint(archivePath))

	var total int64
	for _, entry := range entries {
		line := fmt.Sprintf("  %10s  %s", formatBytes(entry.Header.Size), entry.Header.Path)
		if entry.Header.Mtime != 0 {
			line += r.palette.Muted.Sprintf("  %s", time.Unix(entry.Header.Mtime, 0).UTC().Format(time.RFC3339))
		}
		fmt.Fprintln(r.w, line)
		total += entry.Header.Size
	}

	fmt.Fprintf(r.w, "%d file(s), %s\n", len(entries), formatBytes(total))
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for n/div >= unit && exp < 4 {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}
