// Package storage replicates finished backup artifacts to secondary
// storage. Replication runs after the batch completes and is best-effort:
// a replication failure never changes the outcome of the run that produced
// the artifacts.
package storage

import (
	"context"
	"fmt"

	"polybackup/internal/backup"
	"polybackup/internal/logging"
)

// Provider mirrors artifact files to a secondary location.
type Provider interface {
	// Replicate copies one artifact, identified by its filename within the
	// output directory, to the secondary location.
	Replicate(ctx context.Context, localPath, filename string) error

	// Name identifies the provider in log output.
	Name() string
}

// NewProvider creates the provider selected by the replication config.
func NewProvider(config *backup.ReplicationConfig, logger *logging.Logger) (Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("replication configuration is required")
	}

	switch config.Provider {
	case "local":
		return NewLocalProvider(config.Path, logger)
	case "s3":
		return NewS3Provider(config, logger)
	default:
		return nil, fmt.Errorf("unsupported replication provider: %s", config.Provider)
	}
}

// ReplicateSummary mirrors every successful artifact from a finished run.
// Failures are logged and counted, never propagated.
func ReplicateSummary(ctx context.Context, provider Provider, outputDir string, summary *backup.Summary, logger *logging.Logger) int {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	replicated := 0
	for _, result := range summary.Results {
		if !result.Success || result.OutputFile == "" {
			continue
		}

		if err := provider.Replicate(ctx, outputDir, result.OutputFile); err != nil {
			logger.WithFields(map[string]interface{}{
				"provider": provider.Name(),
				"artifact": result.OutputFile,
				"error":    err.Error(),
			}).Warn("Failed to replicate artifact")
			continue
		}

		logger.Debugf("Replicated %s via %s", result.OutputFile, provider.Name())
		replicated++
	}

	return replicated
}
