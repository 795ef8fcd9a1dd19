// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"time"
)

// Status represents the lifecycle state of a backup job.
type Status string

const (
	// StatusInitiating is the state of a freshly created job whose export
	// program has not produced output yet.
	StatusInitiating Status = "initiating"
	// StatusRunning means the export program has started writing.
	StatusRunning Status = "running"
	// StatusCompleted means the artifact exists and its size is recorded.
	StatusCompleted Status = "completed"
	// StatusError means the export failed; see Job.LastError.
	StatusError Status = "error"
	// StatusDownloaded means a download has claimed the artifact.
	StatusDownloaded Status = "downloaded"
)

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic: initiating -> running -> completed|error, and
// running|completed -> downloaded. Steps may be skipped but never revisited.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusInitiating:
		return next == StatusRunning || next == StatusCompleted || next == StatusError
	case StatusRunning:
		return next == StatusCompleted || next == StatusError || next == StatusDownloaded
	case StatusCompleted:
		return next == StatusDownloaded
	default:
		return false
	}
}

// Downloadable reports whether a download may start from this state.
// Running jobs are accepted so callers can fetch an artifact progressively.
func (s Status) Downloadable() bool {
	return s == StatusCompleted || s == StatusRunning
}

// Job is the registry record for one requested backup.
type Job struct {
	ID           string
	Container    string
	ArtifactName string
	ArtifactPath string
	Status       Status
	Progress     int
	CreatedAt    time.Time
	CompletedAt  time.Time
	Size         int64
	LastError    string

	// Token is the capability supplied at creation. It is never serialized.
	Token string
}

// Snapshot is the caller-facing view of a job at a point in time.
type Snapshot struct {
	ID               string     `json:"id,omitempty"`
	Container        string     `json:"container"`
	Filename         string     `json:"filename"`
	Status           Status     `json:"status"`
	Progress         int        `json:"progress"`
	Size             int64      `json:"size"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	FileExists       bool       `json:"file_exists"`
	RemainingSeconds int        `json:"remaining_seconds"`
	Error            string     `json:"error,omitempty"`

	// Tracked is false for artifacts found on disk without a registry record.
	Tracked bool `json:"tracked"`
}

// CreateResult is returned by Manager.Create.
type CreateResult struct {
	ID               string `json:"id"`
	Status           Status `json:"status"`
	Filename         string `json:"filename"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// ReclaimReason records which agent reclaimed a job.
type ReclaimReason string

const (
	ReasonDownloaded ReclaimReason = "downloaded"
	ReasonExpired    ReclaimReason = "expired"
	ReasonSwept      ReclaimReason = "swept"
	ReasonAborted    ReclaimReason = "aborted"
	ReasonShutdown   ReclaimReason = "shutdown"
)

// SweepReport summarizes one retention sweep.
type SweepReport struct {
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	FilesRemoved  int           `json:"files_removed"`
	JobsReclaimed int           `json:"jobs_reclaimed"`
	Errors        int           `json:"errors"`
}

// SystemStatus describes whether the backup subsystem can do its work.
type SystemStatus struct {
	ArtifactDir     string       `json:"artifact_dir"`
	StoreWritable   bool         `json:"store_writable"`
	StoreError      string       `json:"store_error,omitempty"`
	ExportProgram   string       `json:"export_program,omitempty"`
	ExportAvailable bool         `json:"export_available"`
	ExportError     string       `json:"export_error,omitempty"`
	ImportProgram   string       `json:"import_program,omitempty"`
	ImportAvailable bool         `json:"import_available"`
	ImportError     string       `json:"import_error,omitempty"`
	ActiveJobs      int          `json:"active_jobs"`
	LastSweep       *SweepReport `json:"last_sweep,omitempty"`
	ServerTime      time.Time    `json:"server_time"`
}
