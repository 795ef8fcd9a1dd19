// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package middleware provides HTTP middleware components for the API router.

Key Components:

  - RequestID: reuses or generates an X-Request-ID and stores it in the
    logging context so every log line for the request carries request_id
  - PrometheusMetrics: request counts, latencies and in-flight gauge, labelled
    by chi route pattern

Both are plain func(http.Handler) http.Handler values and are mounted with
chi's Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

PrometheusMetrics wraps the response writer but forwards Flush and Hijack, so
streamed artifact downloads and WebSocket watch upgrades pass through it
unchanged.
*/
package middleware
