// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

// Package history keeps an audit trail of restore runs in BadgerDB.
//
// Entries are keyed by start time so the most recent runs can be read with a
// reverse prefix scan. The store is capped at a configured number of entries;
// the oldest are pruned on write.
//
// Only restore outcomes are stored. Backup job state is deliberately kept in
// memory by the backup package and is not persisted here.
package history
