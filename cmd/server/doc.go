// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Command archivist runs the backup orchestration server.

Archivist launches an external export program per backup request, tracks
each job in an in-memory registry bound to the requester's capability
token, serves the resulting zip artifact exactly once and deletes it. A
retention sweeper removes anything left behind. Restores stream an uploaded
archive to an external import program and record the outcome.

# Commands

	archivist             start the server (same as "archivist serve")
	archivist serve       start the server
	archivist token <sub> issue a signed capability token (AUTH_MODE=jwt)
	archivist version     print the version

# Startup Order

 1. Configuration (Koanf: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. Process supervisor, backup manager and restorer
 4. Restore history store (BadgerDB), when HISTORY_ENABLED
 5. HTTP router (chi) with auth, CORS, rate limit and metrics middleware
 6. Supervisor tree (suture): sweeper, manager shutdown, watch hub, HTTP server

# Signals

SIGINT and SIGTERM cancel the tree. The HTTP server drains for up to 10s,
running export programs are stopped, watch clients receive a going-away
close frame and the history database is closed.

# Example

	export BACKUP_EXPORT_CANDIDATES=./scripts/backup_script.js
	export RESTORE_IMPORT_CANDIDATES=./scripts/restore_script.js
	export AUTH_MODE=jwt
	export JWT_SECRET=$(openssl rand -base64 32)
	./archivist token ci-pipeline --label nightly
	./archivist
*/
package main
