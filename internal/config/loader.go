// Package config loads the backup configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"polybackup/internal/backup"
)

const envPrefix = "POLYBACKUP"

// Load reads a configuration file, applies environment overrides, and
// returns a validated backup.Config. When path is empty the usual locations
// are searched: ./polybackup.yaml, ~/.polybackup/polybackup.yaml and
// /etc/polybackup/polybackup.yaml.
func Load(path string) (*backup.Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("polybackup")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.polybackup")
		v.AddConfigPath("/etc/polybackup")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var cfg backup.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	applyTargetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_path", "./backups")
	v.SetDefault("verbose", false)
}

// applyTargetDefaults fills in the per-kind defaults the YAML may omit: a
// database target that says nothing about schema/data wants both.
func applyTargetDefaults(cfg *backup.Config) {
	for i := range cfg.Targets {
		target := &cfg.Targets[i]

		switch target.Kind {
		case backup.KindSQLite, backup.KindPostgreSQL, backup.KindMySQL:
			if !target.IncludeSchema && !target.IncludeData {
				target.IncludeSchema = true
				target.IncludeData = true
			}
		}

		if target.Kind == backup.KindMySQL && target.Connection.Port == 0 {
			target.Connection.Port = 3306
		}
		if target.Kind == backup.KindPostgreSQL && target.Connection.Port == 0 {
			target.Connection.Port = 5432
		}
	}
}
