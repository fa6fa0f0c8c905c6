package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"polybackup/internal/backup"
	"polybackup/internal/config"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply the retention policy without running any backups",
	Long: `Prunes expired artifacts from the configured output directory using the
configured retention policy. The pass is best-effort: individual deletion
failures are logged and skipped.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if !cfg.Retention.Enabled() {
		return fmt.Errorf("no retention policy configured")
	}

	manager := backup.NewRetentionManager(cfg.OutputPath, *cfg.Retention, logger)
	removed := manager.Cleanup()

	if !quiet {
		fmt.Printf("removed %d expired artifact(s) from %s\n", removed, cfg.OutputPath)
	}
	return nil
}
