// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

// Package logging provides centralized zerolog-based structured logging for Archivist.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("job_id", id).Str("container", c).Msg("Backup job created")
//	logging.Warn().Err(err).Str("path", p).Msg("Failed to remove artifact")
//
// Request handlers log through Ctx, which adds request_id, job_id and
// container from the context:
//
//	ctx = logging.ContextWithJob(ctx, job.ID, job.Container)
//	logging.Ctx(ctx).Info().Msg("Download complete")
//
// # Configuration
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Audit
//
// AccessLogger writes one record per job access decision, download and
// restore. Capability tokens are masked to their first and last four
// characters and user-supplied values are escaped with SanitizeLogValue.
//
// # Suture integration
//
// NewSlogLogger returns an slog.Logger backed by the global zerolog logger
// for sutureslog, so supervisor restarts and panics appear in the same stream.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
