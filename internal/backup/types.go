package backup

import (
	"context"
	"fmt"
	"time"
)

// TargetKind identifies the backend behind a backup target.
type TargetKind string

const (
	KindSQLite     TargetKind = "sqlite"
	KindPostgreSQL TargetKind = "postgresql"
	KindMySQL      TargetKind = "mysql"
	KindFile       TargetKind = "file"
)

// ValidKinds lists every kind the orchestrator can dispatch.
var ValidKinds = []TargetKind{KindSQLite, KindPostgreSQL, KindMySQL, KindFile}

// Target is one configured backup unit. Kind selects which field group is
// meaningful: database kinds use the connection fields, the file kind uses
// the path and filter fields. Name must be unique across the batch because
// it seeds the output filename.
type Target struct {
	Name string     `mapstructure:"name" json:"name"`
	Kind TargetKind `mapstructure:"kind" json:"kind"`

	// Database targets.
	Connection    ConnectionSpec `mapstructure:"connection" json:"connection,omitempty"`
	TableFilter   []string       `mapstructure:"table_filter" json:"table_filter,omitempty"`
	IncludeSchema bool           `mapstructure:"include_schema" json:"include_schema,omitempty"`
	IncludeData   bool           `mapstructure:"include_data" json:"include_data,omitempty"`

	// Compression names the dump compression algorithm for database
	// targets: none, gzip, zstd or lz4. Compress is the gzip shorthand
	// shared with file targets.
	Compression string `mapstructure:"compression" json:"compression,omitempty"`

	// File and directory targets.
	Path             string   `mapstructure:"path" json:"path,omitempty"`
	Compress         bool     `mapstructure:"compress" json:"compress,omitempty"`
	Include          []string `mapstructure:"include" json:"include,omitempty"`
	Exclude          []string `mapstructure:"exclude" json:"exclude,omitempty"`
	MaxFileSize      int64    `mapstructure:"max_file_size" json:"max_file_size,omitempty"`
	FollowSymlinks   bool     `mapstructure:"follow_symlinks" json:"follow_symlinks,omitempty"`
	PreserveMetadata bool     `mapstructure:"preserve_metadata" json:"preserve_metadata,omitempty"`

	// Verbose overrides the batch-level verbosity for this target when set.
	Verbose *bool `mapstructure:"verbose" json:"verbose,omitempty"`
}

// ConnectionSpec describes how a database adapter reaches its source.
// SQLite uses only Database (the file path); the server backends use the
// host fields.
type ConnectionSpec struct {
	Host     string `mapstructure:"host" json:"host,omitempty"`
	Port     int    `mapstructure:"port" json:"port,omitempty"`
	User     string `mapstructure:"user" json:"user,omitempty"`
	Password string `mapstructure:"password" json:"-"`
	Database string `mapstructure:"database" json:"database,omitempty"`
}

// RetentionPolicy bounds how many artifacts the output directory keeps.
// Either axis may be nil to disable it; when both are set the deletion sets
// are unioned.
type RetentionPolicy struct {
	Count      *int `mapstructure:"count" json:"count,omitempty"`
	MaxAgeDays *int `mapstructure:"max_age_days" json:"max_age_days,omitempty"`
}

// Enabled reports whether the policy constrains anything at all.
func (p *RetentionPolicy) Enabled() bool {
	return p != nil && (p.Count != nil || p.MaxAgeDays != nil)
}

// Config is the read-only input for one orchestration run.
type Config struct {
	Targets    []Target         `mapstructure:"targets" json:"targets"`
	OutputPath string           `mapstructure:"output_path" json:"output_path"`
	Retention  *RetentionPolicy `mapstructure:"retention" json:"retention,omitempty"`
	Verbose    bool             `mapstructure:"verbose" json:"verbose,omitempty"`

	// Replication mirrors finished artifacts to secondary storage. Optional.
	Replication *ReplicationConfig `mapstructure:"replication" json:"replication,omitempty"`
}

// ReplicationConfig selects a secondary storage provider for artifacts.
type ReplicationConfig struct {
	Provider string `mapstructure:"provider" json:"provider"`

	// Local provider.
	Path string `mapstructure:"path" json:"path,omitempty"`

	// S3 provider.
	Bucket   string `mapstructure:"bucket" json:"bucket,omitempty"`
	Region   string `mapstructure:"region" json:"region,omitempty"`
	Prefix   string `mapstructure:"prefix" json:"prefix,omitempty"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint,omitempty"`
}

// Validate checks the config for problems that would make a run ambiguous:
// missing output path, unnamed targets, unknown kinds, and duplicate target
// names (which would silently overwrite one another's artifacts).
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.OutputPath == "" {
		errs = append(errs, NewValidationError("output_path", "output path is required"))
	}
	if len(c.Targets) == 0 {
		errs = append(errs, NewValidationError("targets", "at least one target is required"))
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for i, target := range c.Targets {
		field := fmt.Sprintf("targets[%d]", i)

		if target.Name == "" {
			errs = append(errs, NewValidationError(field, "target name is required"))
			continue
		}
		if _, dup := seen[target.Name]; dup {
			errs = append(errs, NewValidationError(field, fmt.Sprintf("duplicate target name %q", target.Name)))
		}
		seen[target.Name] = struct{}{}

		switch target.Kind {
		case KindSQLite:
			if target.Connection.Database == "" {
				errs = append(errs, NewValidationError(field, "sqlite target requires connection.database"))
			}
		case KindPostgreSQL, KindMySQL:
			if target.Connection.Database == "" {
				errs = append(errs, NewValidationError(field, "database target requires connection.database"))
			}
			if !validCompression(target.Compression) {
				errs = append(errs, NewValidationError(field, fmt.Sprintf("unsupported compression %q", target.Compression)))
			}
		case KindFile:
			if target.Path == "" {
				errs = append(errs, NewValidationError(field, "file target requires a path"))
			}
		default:
			errs = append(errs, NewValidationError(field, fmt.Sprintf("unsupported target kind %q", target.Kind)))
		}
	}

	if c.Replication != nil {
		switch c.Replication.Provider {
		case "local":
			if c.Replication.Path == "" {
				errs = append(errs, NewValidationError("replication", "local replication requires a path"))
			}
		case "s3":
			if c.Replication.Bucket == "" {
				errs = append(errs, NewValidationError("replication", "s3 replication requires a bucket"))
			}
		default:
			errs = append(errs, NewValidationError("replication", fmt.Sprintf("unsupported replication provider %q", c.Replication.Provider)))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validCompression accepts the dump compression algorithms the archive
// layer implements.
func validCompression(name string) bool {
	switch name {
	case "", "none", "gzip", "zstd", "lz4":
		return true
	default:
		return false
	}
}

// Result records the outcome of one target. Exactly one Result exists per
// configured target, including failed ones.
type Result struct {
	Name       string        `json:"name"`
	Kind       TargetKind    `json:"kind"`
	OutputFile string        `json:"output_file,omitempty"`
	SizeBytes  int64         `json:"size_bytes"`
	Duration   time.Duration `json:"duration"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	FileCount  int           `json:"file_count,omitempty"`
}

// Adapter is the contract every backend implements. Backup produces one
// artifact in outputDir and reports it as a Result; returning an error (or
// panicking) marks the target failed without affecting the rest of the
// batch.
type Adapter interface {
	Kind() TargetKind
	Backup(ctx context.Context, target Target, outputDir string) (*Result, error)
}
