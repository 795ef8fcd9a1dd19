// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package config provides centralized configuration management for Archivist.

Configuration is loaded by LoadWithKoanf in three layers, each overriding the
previous one:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (CONFIG_PATH, or config.yaml / /etc/archivist/config.yaml)
 3. Environment variables, mapped explicitly to config paths

Unknown environment variables are ignored.

# Sections

  - server: HTTP listener (HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, ENVIRONMENT)
  - security: capability tokens and request limits (AUTH_MODE, JWT_SECRET,
    TOKEN_TTL, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS)
  - logging: LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - backup: export program and artifact lifecycle (BACKUP_DIR,
    BACKUP_EXPORT_INTERPRETER, BACKUP_EXPORT_CANDIDATES, BACKUP_JOB_TTL,
    BACKUP_RETENTION_MAX_AGE, BACKUP_SWEEP_INTERVAL, BACKUP_SWEEP_INITIAL_DELAY,
    BACKUP_UNTRACKED_WINDOW)
  - restore: upload staging and import program (RESTORE_TEMP_DIR,
    RESTORE_IMPORT_INTERPRETER, RESTORE_IMPORT_CANDIDATES, RESTORE_MAX_UPLOAD,
    RESTORE_OUTPUT_LIMIT, RESTORE_TIMEOUT)
  - history: restore history store (HISTORY_ENABLED, HISTORY_PATH,
    HISTORY_IN_MEMORY, HISTORY_MAX_ENTRIES)

Comma-separated values are accepted for list settings (CORS_ORIGINS and the
program candidate lists).

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}
	manager := backup.NewManager(cfg.BackupSettings(), registry, supervisor, clock.WallClock)

# Defaults

  - HTTP_PORT: 3001
  - AUTH_MODE: none (tokens are opaque strings bound to each job)
  - BACKUP_JOB_TTL: 5m, BACKUP_RETENTION_MAX_AGE: 10m, BACKUP_SWEEP_INTERVAL: 30m
  - RESTORE_MAX_UPLOAD: 500 MiB, RESTORE_OUTPUT_LIMIT: 10 MiB
  - RESTORE_TEMP_DIR: /tmp/archivist-uploads when ENVIRONMENT=production,
    ./temp_uploads otherwise

The Config struct is not modified after LoadWithKoanf returns and is safe for
concurrent reads.
*/
package config
