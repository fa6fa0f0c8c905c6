package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"polybackup/internal/backup"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Long: `Writes an annotated starter configuration to polybackup.yaml (or the
given path) covering one target of each kind, a retention policy and
optional replication.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "polybackup.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(starterConfig())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if !quiet {
		fmt.Printf("wrote starter configuration to %s\n", path)
	}
	return nil
}

// starterConfig builds the example configuration the init command writes,
// keyed the way the loader expects it.
func starterConfig() map[string]interface{} {
	return map[string]interface{}{
		"output_path": "./backups",
		"verbose":     false,
		"retention": map[string]interface{}{
			"count":        7,
			"max_age_days": 30,
		},
		"targets": []map[string]interface{}{
			{
				"name": "app-db",
				"kind": string(backup.KindMySQL),
				"connection": map[string]interface{}{
					"host":     "127.0.0.1",
					"port":     3306,
					"user":     "backup",
					"database": "app",
				},
			},
			{
				"name": "local-db",
				"kind": string(backup.KindSQLite),
				"connection": map[string]interface{}{
					"database": "/var/lib/app/app.db",
				},
			},
			{
				"name":     "configs",
				"kind":     string(backup.KindFile),
				"path":     "/etc/app",
				"compress": true,
				"exclude":  []string{"*.sock", "*.pid"},
			},
		},
	}
}
