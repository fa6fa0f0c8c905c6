package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"polybackup/internal/adapter"
	"polybackup/internal/backup"
	"polybackup/internal/config"
	"polybackup/internal/display"
	"polybackup/internal/logging"
	"polybackup/internal/storage"
)

var (
	outputPath   string
	askPassword  bool
	passwordFor  string
	skipCleanup  bool
	skipReplicas bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run every configured backup target",
	Long: `Runs the configured targets strictly in order, one at a time. A failing
target never aborts the batch: it is recorded as a failed result and the
run continues. After the last target the retention policy prunes expired
artifacts from the output directory.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&outputPath, "output", "o", "", "override the configured output directory")
	backupCmd.Flags().BoolVar(&askPassword, "ask-password", false, "prompt for a database password instead of reading it from config")
	backupCmd.Flags().StringVar(&passwordFor, "password-for", "", "target name the prompted password applies to (default: all database targets)")
	backupCmd.Flags().BoolVar(&skipCleanup, "skip-cleanup", false, "skip the retention pass for this run")
	backupCmd.Flags().BoolVar(&skipReplicas, "skip-replication", false, "skip artifact replication for this run")

	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if verbose {
		cfg.Verbose = true
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
	if skipCleanup {
		cfg.Retention = nil
	}

	if askPassword {
		password, err := promptPassword()
		if err != nil {
			return err
		}
		applyPassword(cfg, passwordFor, password)
	}

	runner := backup.NewRunner(*cfg, logger)
	for _, a := range adapter.All(logger) {
		runner.RegisterAdapter(a)
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	if cfg.Replication != nil && !skipReplicas {
		replicate(cfg, summary, logger)
	}

	if !quiet {
		renderer := display.NewRenderer(os.Stdout, display.NewPalette(noColor))
		renderer.RenderSummary(summary)
	}

	if summary.FailureCount > 0 {
		return fmt.Errorf("%d of %d target(s) failed", summary.FailureCount, len(summary.Results))
	}
	return nil
}

// replicate mirrors the run's artifacts to secondary storage. Replication is
// best-effort and never changes the run's outcome.
func replicate(cfg *backup.Config, summary *backup.Summary, logger *logging.Logger) {
	provider, err := storage.NewProvider(cfg.Replication, logger)
	if err != nil {
		logger.Warnf("Replication disabled: %v", err)
		return
	}

	replicated := storage.ReplicateSummary(context.Background(), provider, cfg.OutputPath, summary, logger)
	logger.Infof("Replicated %d artifact(s) via %s", replicated, provider.Name())
}

// promptPassword reads a password from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// applyPassword sets the prompted password on the named target, or on every
// database target when no name is given.
func applyPassword(cfg *backup.Config, targetName, password string) {
	for i := range cfg.Targets {
		target := &cfg.Targets[i]
		if target.Kind == backup.KindFile {
			continue
		}
		if targetName != "" && target.Name != targetName {
			continue
		}
		target.Connection.Password = password
	}
}
