// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package config

import (
	"time"

	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/history"
	"github.com/tomtom215/archivist/internal/process"
)

// Config holds all application configuration, loaded by LoadWithKoanf.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Backup   BackupConfig   `koanf:"backup"`
	Restore  RestoreConfig  `koanf:"restore"`
	History  HistoryConfig  `koanf:"history"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production" (default: "development")
}

// SecurityConfig holds capability-token and request limiting settings.
type SecurityConfig struct {
	// AuthMode is "none" (tokens are opaque strings) or "jwt" (tokens must
	// also be HS256 tokens signed with JWTSecret).
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of tokens issued by the server binary.
	TokenTTL time.Duration `koanf:"token_ttl"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// BackupConfig holds export job and artifact retention settings.
type BackupConfig struct {
	Dir               string        `koanf:"dir"`
	ExportInterpreter string        `koanf:"export_interpreter"`
	ExportCandidates  []string      `koanf:"export_candidates"`
	JobTTL            time.Duration `koanf:"job_ttl"`
	RetentionMaxAge   time.Duration `koanf:"retention_max_age"`
	SweepInterval     time.Duration `koanf:"sweep_interval"`
	SweepInitialDelay time.Duration `koanf:"sweep_initial_delay"`
	UntrackedWindow   time.Duration `koanf:"untracked_window"`
}

// RestoreConfig holds restore upload and import program settings.
type RestoreConfig struct {
	// TempDir is where uploads are staged. When empty it is chosen by
	// environment: /tmp/archivist-uploads in production, ./temp_uploads otherwise.
	TempDir           string        `koanf:"temp_dir"`
	ImportInterpreter string        `koanf:"import_interpreter"`
	ImportCandidates  []string      `koanf:"import_candidates"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes"`
	OutputLimit       int           `koanf:"output_limit"`
	Timeout           time.Duration `koanf:"timeout"`
}

// HistoryConfig holds settings for the restore history store.
type HistoryConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	MaxEntries int    `koanf:"max_entries"`
}

// Upload staging directories.
const (
	ProductionTempDir  = "/tmp/archivist-uploads"
	DevelopmentTempDir = "./temp_uploads"
)

// BackupSettings converts the backup section into the lifecycle manager's config.
func (c *Config) BackupSettings() backup.Config {
	return backup.Config{
		Dir: c.Backup.Dir,
		Export: process.Program{
			Interpreter: c.Backup.ExportInterpreter,
			Candidates:  c.Backup.ExportCandidates,
		},
		JobTTL:            c.Backup.JobTTL,
		RetentionMaxAge:   c.Backup.RetentionMaxAge,
		SweepInterval:     c.Backup.SweepInterval,
		SweepInitialDelay: c.Backup.SweepInitialDelay,
		UntrackedWindow:   c.Backup.UntrackedWindow,
	}
}

// RestoreSettings converts the restore section into the restorer's config,
// resolving the staging directory for the current environment.
func (c *Config) RestoreSettings() backup.RestoreConfig {
	return backup.RestoreConfig{
		TempDir: c.RestoreTempDir(),
		Import: process.Program{
			Interpreter: c.Restore.ImportInterpreter,
			Candidates:  c.Restore.ImportCandidates,
		},
		MaxUploadBytes: c.Restore.MaxUploadBytes,
		OutputLimit:    c.Restore.OutputLimit,
		Timeout:        c.Restore.Timeout,
	}
}

// RestoreTempDir returns the configured staging directory or the
// environment default.
func (c *Config) RestoreTempDir() string {
	if c.Restore.TempDir != "" {
		return c.Restore.TempDir
	}
	if c.IsProduction() {
		return ProductionTempDir
	}
	return DevelopmentTempDir
}

// HistorySettings converts the history section into store options.
func (c *Config) HistorySettings() history.Options {
	return history.Options{
		Path:       c.History.Path,
		InMemory:   c.History.InMemory,
		MaxEntries: c.History.MaxEntries,
	}
}
