// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/archivist/internal/process"
)

// Default lifecycle settings.
const (
	DefaultJobTTL            = 5 * time.Minute
	DefaultRetentionMaxAge   = 10 * time.Minute
	DefaultSweepInterval     = 30 * time.Minute
	DefaultSweepInitialDelay = 5 * time.Second
	DefaultUntrackedWindow   = 2 * time.Minute
	DefaultMaxUploadBytes    = 500 << 20
)

// Config holds the backup side of the service.
type Config struct {
	// Dir is where export programs write artifacts.
	Dir string

	// Export locates the program invoked as: <program> <container> <artifact-path>
	Export process.Program

	// JobTTL is how long an unclaimed job lives before its expiration timer
	// reclaims it.
	JobTTL time.Duration

	// RetentionMaxAge is the age after which the sweeper deletes artifact
	// files and registry records regardless of state.
	RetentionMaxAge time.Duration

	// SweepInterval is the period between retention sweeps.
	SweepInterval time.Duration

	// SweepInitialDelay is the wait before the startup sweep.
	SweepInitialDelay time.Duration

	// UntrackedWindow bounds how recent an artifact without a registry
	// record must be to appear in container listings.
	UntrackedWindow time.Duration
}

// RestoreConfig holds the restore side of the service.
type RestoreConfig struct {
	// TempDir receives uploaded archives for the duration of a restore.
	TempDir string

	// Import locates the program invoked as: <program> <archive> <container> [--preserve-ids]
	Import process.Program

	// MaxUploadBytes caps the size of an uploaded archive.
	MaxUploadBytes int64

	// OutputLimit caps the combined output captured from the import program.
	OutputLimit int

	// Timeout bounds a restore run. Zero means no limit.
	Timeout time.Duration
}

// DefaultConfig returns a Config with the standard lifecycle durations.
func DefaultConfig() Config {
	return Config{
		Dir: "./backups",
		Export: process.Program{
			Interpreter: "node",
			Candidates:  []string{"./scripts/backup_script.js"},
		},
		JobTTL:            DefaultJobTTL,
		RetentionMaxAge:   DefaultRetentionMaxAge,
		SweepInterval:     DefaultSweepInterval,
		SweepInitialDelay: DefaultSweepInitialDelay,
		UntrackedWindow:   DefaultUntrackedWindow,
	}
}

// DefaultRestoreConfig returns a RestoreConfig with standard limits.
func DefaultRestoreConfig() RestoreConfig {
	return RestoreConfig{
		TempDir: "./temp_uploads",
		Import: process.Program{
			Interpreter: "node",
			Candidates:  []string{"./scripts/restore_script_simple.js", "./scripts/restore_script.js"},
		},
		MaxUploadBytes: DefaultMaxUploadBytes,
		OutputLimit:    process.DefaultOutputLimit,
	}
}

// Validate checks the backup configuration.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	if len(c.Export.Candidates) == 0 {
		return fmt.Errorf("BACKUP_EXPORT_CANDIDATES must name at least one program")
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("BACKUP_JOB_TTL must be positive")
	}
	if c.RetentionMaxAge <= 0 {
		return fmt.Errorf("BACKUP_RETENTION_MAX_AGE must be positive")
	}
	if c.RetentionMaxAge < c.JobTTL {
		return fmt.Errorf("BACKUP_RETENTION_MAX_AGE (%s) must not be shorter than BACKUP_JOB_TTL (%s)", c.RetentionMaxAge, c.JobTTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("BACKUP_SWEEP_INTERVAL must be positive")
	}
	if c.SweepInitialDelay < 0 {
		return fmt.Errorf("BACKUP_SWEEP_INITIAL_DELAY must not be negative")
	}
	if c.UntrackedWindow < 0 {
		return fmt.Errorf("BACKUP_UNTRACKED_WINDOW must not be negative")
	}
	return nil
}

// Validate checks the restore configuration.
func (c *RestoreConfig) Validate() error {
	if c.TempDir == "" {
		return fmt.Errorf("RESTORE_TEMP_DIR is required")
	}
	if len(c.Import.Candidates) == 0 {
		return fmt.Errorf("RESTORE_IMPORT_CANDIDATES must name at least one program")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("RESTORE_MAX_UPLOAD must be positive")
	}
	if c.OutputLimit <= 0 {
		return fmt.Errorf("RESTORE_OUTPUT_LIMIT must be positive")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("RESTORE_TIMEOUT must not be negative")
	}
	return nil
}

// EnsureTempDir creates the upload directory if it doesn't exist.
func (c *RestoreConfig) EnsureTempDir() error {
	if err := os.MkdirAll(c.TempDir, 0o750); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}
