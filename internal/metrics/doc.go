// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - Backup job creation, state transitions and reclaim
  - Artifact sizes and download volume
  - Retention sweep runs
  - Restore runs and external program launches
  - HTTP request latency and throughput
  - WebSocket watch connections

All collectors are registered with the default registry through promauto and
are exposed at /metrics:

	curl http://localhost:3857/metrics

# Recording

Packages call the Record* helpers rather than touching collectors directly:

	metrics.RecordJobCreated()
	metrics.RecordJobTransition("completed")
	metrics.RecordJobReclaimed("downloaded")
	metrics.RecordSweep(time.Since(start), removed, errs)

Label values are drawn from small fixed sets (status, reclaim reason,
result) so cardinality stays bounded.
*/
package metrics
