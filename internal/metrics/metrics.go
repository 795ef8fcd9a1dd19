// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Backup job lifecycle and artifact reclaim
// - Retention sweeps
// - Restore runs
// - API endpoint latency and throughput
// - WebSocket watch connections

var (
	// Backup Job Metrics
	BackupJobsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_jobs_created_total",
			Help: "Total number of backup jobs created",
		},
	)

	BackupJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_jobs_active",
			Help: "Current number of backup jobs held in the registry",
		},
	)

	BackupJobTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_job_transitions_total",
			Help: "Total number of backup job state transitions",
		},
		[]string{"status"}, // "running", "completed", "error", "downloaded"
	)

	BackupJobsReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_jobs_reclaimed_total",
			Help: "Total number of backup jobs reclaimed",
		},
		[]string{"reason"}, // "downloaded", "expired", "swept", "aborted", "shutdown"
	)

	BackupArtifactBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_artifact_size_bytes",
			Help:    "Size of completed backup artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<10, 4, 12), // 1KiB .. 4GiB
		},
	)

	BackupDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_downloads_total",
			Help: "Total number of backup download attempts",
		},
		[]string{"result"}, // "ok", "partial", "rejected"
	)

	BackupDownloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_download_bytes_total",
			Help: "Total bytes streamed to backup downloads",
		},
	)

	// Retention Sweep Metrics
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_sweep_duration_seconds",
			Help:    "Duration of retention sweeps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	SweepFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_sweep_files_removed_total",
			Help: "Total number of artifact files removed by retention sweeps",
		},
	)

	SweepErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backup_sweep_errors_total",
			Help: "Total number of per-item errors during retention sweeps",
		},
	)

	SweepLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_sweep_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed retention sweep",
		},
	)

	// Restore Metrics
	RestoreRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restore_runs_total",
			Help: "Total number of restore runs",
		},
		[]string{"result"}, // "success", "failure", "unavailable"
	)

	RestoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "restore_duration_seconds",
			Help:    "Duration of restore runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	RestoreUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "restore_upload_size_bytes",
			Help:    "Size of uploaded restore archives in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<10, 4, 11),
		},
	)

	// External Process Metrics
	ProcessStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_process_starts_total",
			Help: "Total number of external program launches",
		},
		[]string{"program", "result"}, // program: "export", "import"; result: "started", "failed"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket watch connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordJobCreated records a new backup job
func RecordJobCreated() {
	BackupJobsCreated.Inc()
	BackupJobsActive.Inc()
}

// RecordJobTransition records a job entering status
func RecordJobTransition(status string) {
	BackupJobTransitions.WithLabelValues(status).Inc()
}

// RecordJobReclaimed records a job leaving the registry
func RecordJobReclaimed(reason string) {
	BackupJobsReclaimed.WithLabelValues(reason).Inc()
	BackupJobsActive.Dec()
}

// RecordArtifactSize records the size of a completed artifact
func RecordArtifactSize(size int64) {
	BackupArtifactBytes.Observe(float64(size))
}

// RecordDownload records the outcome of a download and the bytes sent
func RecordDownload(result string, bytes int64) {
	BackupDownloads.WithLabelValues(result).Inc()
	if bytes > 0 {
		BackupDownloadBytes.Add(float64(bytes))
	}
}

// RecordSweep records a completed retention sweep
func RecordSweep(duration time.Duration, filesRemoved, errs int) {
	SweepDuration.Observe(duration.Seconds())
	SweepFilesRemoved.Add(float64(filesRemoved))
	SweepErrors.Add(float64(errs))
	SweepLastRun.Set(float64(time.Now().Unix()))
}

// RecordRestore records the outcome of a restore run
func RecordRestore(result string, duration time.Duration) {
	RestoreRuns.WithLabelValues(result).Inc()
	if duration > 0 {
		RestoreDuration.Observe(duration.Seconds())
	}
}

// RecordProcessStart records an external program launch attempt
func RecordProcessStart(program string, started bool) {
	result := "started"
	if !started {
		result = "failed"
	}
	ProcessStarts.WithLabelValues(program, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// TrackWSConnection tracks active WebSocket watch connections
func TrackWSConnection(inc bool) {
	if inc {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}
