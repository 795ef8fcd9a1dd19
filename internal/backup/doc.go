// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

// Package backup orchestrates on-demand export jobs for storage containers
// and manages the lifecycle of the archive files they produce.
//
// # Overview
//
// A caller asks for a backup of a named container. The Manager registers a
// job, launches the external export program through the process package, and
// tracks the job through its lifecycle:
//
//	initiating -> running -> completed | error
//	running | completed -> downloaded
//
// Artifacts are single-use. The first successful download claims the job
// and, once the stream ends, the artifact file and the registry record are
// both removed. Artifacts that are never fetched are reclaimed by a per-job
// expiration timer and, as a backstop, by the retention Sweeper.
//
// # Components
//
//	Registry - in-memory job records with atomic claim and subscriptions
//	Store    - the artifact directory; every removal is existence-checked
//	Manager  - job creation, process events, timers, reclaim
//	Sweeper  - periodic age-based deletion of files and records
//	Restorer - synchronous import of an uploaded archive
//
// # Reclaim
//
// Three agents can reclaim a job: the download path, the expiration timer
// and the sweeper. Reclaim is idempotent, so whichever runs second finds
// nothing left and does nothing. The expiration timer never reclaims a job
// whose artifact has been claimed by a download.
//
// # Errors
//
// Failures are classified with github.com/juju/errors sentinels
// (NotFound, Unauthorized, Forbidden, NotValid) plus the package's own
// ErrInvalidState, ErrProcessFailure, ErrArtifactMissing and
// ErrProgramNotFound. Test them with errors.Is.
//
// # Time
//
// All timers come from an injected github.com/juju/clock Clock so tests can
// drive expiration and sweeps with testclock.
package backup
