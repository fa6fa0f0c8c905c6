package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"polybackup/internal/logging"
)

// Runner orchestrates one backup batch: it processes targets strictly in
// configuration order, one at a time, isolates each target's failure, then
// applies the retention policy over the output directory.
type Runner struct {
	config   Config
	adapters map[TargetKind]Adapter
	logger   *logging.Logger
}

// NewRunner creates a runner for the given configuration. Adapters must be
// registered before Run is called; a target whose kind has no adapter fails
// with an unsupported-kind error without affecting the rest of the batch.
func NewRunner(config Config, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Runner{
		config:   config,
		adapters: make(map[TargetKind]Adapter),
		logger:   logger,
	}
}

// RegisterAdapter makes an adapter available for its kind. Registering a
// second adapter for the same kind replaces the first.
func (r *Runner) RegisterAdapter(adapter Adapter) {
	r.adapters[adapter.Kind()] = adapter
}

// Run executes the batch and returns its summary. The only fatal error is
// failing to create the output directory; every per-target failure is
// absorbed into a failed Result, and retention failures never surface at
// all. The summary always carries exactly one result per configured target,
// in configuration order.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	if err := os.MkdirAll(r.config.OutputPath, 0755); err != nil {
		return nil, NewWriteError(fmt.Sprintf("failed to create output directory %s", r.config.OutputPath), err)
	}

	r.logger.WithFields(map[string]interface{}{
		"targets":     len(r.config.Targets),
		"output_path": r.config.OutputPath,
	}).Info("Starting backup run")

	results := make([]Result, 0, len(r.config.Targets))
	for _, target := range r.config.Targets {
		results = append(results, r.runTarget(ctx, target))
	}

	removed := 0
	if r.config.Retention.Enabled() {
		removed = NewRetentionManager(r.config.OutputPath, *r.config.Retention, r.logger).Cleanup()
	}

	summary := NewSummary(started, results, time.Since(started))
	summary.FilesRemoved = removed

	r.logger.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"succeeded": summary.SuccessCount,
		"failed":    summary.FailureCount,
		"duration":  summary.TotalDuration.String(),
	}).Info("Backup run finished")

	return summary, nil
}

// runTarget dispatches one target to its adapter. Errors and panics both
// collapse into a failed Result so the batch keeps going.
func (r *Runner) runTarget(ctx context.Context, target Target) Result {
	started := time.Now()

	if r.effectiveVerbose(target) {
		r.logger.WithFields(map[string]interface{}{
			"target": target.Name,
			"kind":   string(target.Kind),
		}).Info("Processing target")
	}

	adapter, ok := r.adapters[target.Kind]
	if !ok {
		err := NewUnsupportedKindError(target.Kind)
		r.logger.LogTargetBackup(target.Name, string(target.Kind), "", 0, time.Since(started), err)
		return Result{
			Name:     target.Name,
			Kind:     target.Kind,
			Duration: time.Since(started),
			Error:    err.Error(),
		}
	}

	result, err := r.invokeAdapter(ctx, adapter, target)
	duration := time.Since(started)

	if err != nil {
		r.logger.LogTargetBackup(target.Name, string(target.Kind), "", 0, duration, err)
		return Result{
			Name:     target.Name,
			Kind:     target.Kind,
			Duration: duration,
			Error:    err.Error(),
		}
	}

	result.Name = target.Name
	result.Kind = target.Kind
	result.Duration = duration
	result.Success = true

	r.logger.LogTargetBackup(target.Name, string(target.Kind), result.OutputFile, result.SizeBytes, duration, nil)
	return *result
}

// invokeAdapter calls the adapter with panic isolation. A panicking adapter
// must not abort the batch, so the panic is converted into an error here.
func (r *Runner) invokeAdapter(ctx context.Context, adapter Adapter, target Target) (result *Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = fmt.Errorf("adapter panicked: %v", recovered)
		}
	}()

	result, err = adapter.Backup(ctx, target, r.config.OutputPath)
	if err == nil && result == nil {
		err = fmt.Errorf("adapter for kind %q returned no result", target.Kind)
	}
	return result, err
}

// effectiveVerbose resolves per-target verbosity: the target's own setting
// wins, otherwise the batch-level flag applies.
func (r *Runner) effectiveVerbose(target Target) bool {
	if target.Verbose != nil {
		return *target.Verbose
	}
	return r.config.Verbose
}
