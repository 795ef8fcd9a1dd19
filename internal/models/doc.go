// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

// Package models defines the HTTP request and response shapes shared by the
// API handlers, the auth middleware and the server binary.
//
// Every JSON response except the restore result is wrapped in APIResponse.
// Job snapshots themselves live in the backup package.
package models
