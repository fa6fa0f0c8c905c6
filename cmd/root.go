// Package cmd wires the CLI commands: backup, cleanup, inspect and init.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"polybackup/internal/logging"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
	logFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "polybackup",
	Short: "Point-in-time backups for databases and filesystem trees",
	Long: `polybackup produces point-in-time backups of heterogeneous sources -
SQLite, PostgreSQL and MySQL databases, plain files and whole directory
trees - into a shared output directory, then prunes stale artifacts under
a count/age retention policy.

Directory trees are serialized into a streaming archive container with
glob-based include/exclude filtering, size limits and optional gzip
compression; databases are dumped as SQL.

Examples:
  # Run every configured target
  polybackup backup --config=polybackup.yaml

  # Run the retention pass on its own
  polybackup cleanup --config=polybackup.yaml

  # List the contents of a produced archive
  polybackup inspect backups/configs_2026-01-01T00-00-00Z.tar.gz

  # Write a starter configuration file
  polybackup init`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./polybackup.yaml, $HOME/.polybackup, /etc/polybackup)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
}

// newLogger builds the logger shared by every command from the global flags.
func newLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelVerbose
	}
	if quiet {
		level = logging.LogLevelQuiet
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:   level,
		Output:  os.Stderr,
		Format:  "text",
		LogFile: logFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	return logger, nil
}
