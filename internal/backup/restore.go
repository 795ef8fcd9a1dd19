// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
	"github.com/tomtom215/archivist/internal/process"
)

// PreserveIDsFlag asks the import program to keep document identifiers.
const PreserveIDsFlag = "--preserve-ids"

// RestoreRequest describes one restore of an uploaded archive.
type RestoreRequest struct {
	// ArchivePath is the temporary upload. It is deleted when Restore returns.
	ArchivePath string

	// OriginalName is the client-side file name, for logs and history.
	OriginalName string

	Container   string
	PreserveIDs bool
}

// RestoreResult is the outcome of a restore that reached the import program.
type RestoreResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Output    string `json:"output"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated,omitempty"`

	Duration time.Duration `json:"-"`
}

// RestoreRecord is published to restore observers after every run.
type RestoreRecord struct {
	Container   string
	Filename    string
	PreserveIDs bool
	Success     bool
	ExitCode    int
	Message     string
	OutputTail  string
	StartedAt   time.Time
	Duration    time.Duration
}

// Restorer runs the import program against uploaded archives.
type Restorer struct {
	cfg      RestoreConfig
	launcher process.Launcher
	clock    clock.Clock

	mu        sync.RWMutex
	observers []func(RestoreRecord)
}

// NewRestorer creates a Restorer and its upload directory.
func NewRestorer(cfg RestoreConfig, launcher process.Launcher, clk clock.Clock) (*Restorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid restore configuration: %w", err)
	}
	if err := cfg.EnsureTempDir(); err != nil {
		return nil, err
	}
	return &Restorer{cfg: cfg, launcher: launcher, clock: clk}, nil
}

// Config returns the restore configuration.
func (r *Restorer) Config() RestoreConfig {
	return r.cfg
}

// OnComplete registers fn to receive a record of every finished restore.
func (r *Restorer) OnComplete(fn func(RestoreRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Restore runs the import program to completion and reports its combined
// output. A nonzero exit is reported through RestoreResult, not as an error;
// errors mean the import could not run at all. The uploaded archive is
// deleted on every path.
//
// The import runs detached from ctx's cancellation so that a client
// disconnect cannot interrupt a half-applied restore. RestoreConfig.Timeout
// still applies.
func (r *Restorer) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, error) {
	defer r.cleanupUpload(req.ArchivePath)

	if err := ValidateContainer(req.Container); err != nil {
		return nil, err
	}
	if req.ArchivePath == "" {
		return nil, fmt.Errorf("%w: backup file is required", ErrNotValid)
	}

	args := []string{req.ArchivePath, req.Container}
	if req.PreserveIDs {
		args = append(args, PreserveIDsFlag)
	}
	cmd, err := r.cfg.Import.Command(args...)
	if err != nil {
		metrics.RecordRestore("unavailable", 0)
		metrics.RecordProcessStart("import", false)
		return nil, fmt.Errorf("import program unavailable: %w", err)
	}

	runCtx := context.WithoutCancel(ctx)
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.cfg.Timeout)
		defer cancel()
	}

	logging.Ctx(ctx).Info().
		Str("container", req.Container).
		Str("archive", req.OriginalName).
		Bool("preserve_ids", req.PreserveIDs).
		Msg("Restore started")

	started := r.clock.Now()
	exec := r.launcher.Launch(runCtx, cmd)
	collected := process.Collect(exec.Events(), r.cfg.OutputLimit)
	metrics.RecordProcessStart("import", collected.Started)

	result := &RestoreResult{
		Success:   collected.Success(),
		Output:    collected.Output,
		ExitCode:  collected.ExitCode,
		Truncated: collected.Truncated,
		Duration:  r.clock.Now().Sub(started),
	}

	switch {
	case result.Success:
		result.Message = "Restore completed successfully"
		metrics.RecordRestore("success", result.Duration)
		logging.Ctx(ctx).Info().
			Str("container", req.Container).
			Dur("duration", result.Duration).
			Msg("Restore completed")
	case !collected.Started:
		result.Message = startError("import", collected.Err).Error()
		metrics.RecordRestore("failure", result.Duration)
		logging.Ctx(ctx).Error().Err(collected.Err).Str("container", req.Container).Msg("Restore could not start")
	default:
		failure := exitError("import", collected.ExitCode)
		if runCtx.Err() != nil {
			failure = fmt.Errorf("%w (%v)", failure, runCtx.Err())
		}
		result.Message = failure.Error()
		metrics.RecordRestore("failure", result.Duration)
		logging.Ctx(ctx).Error().
			Err(failure).
			Str("container", req.Container).
			Str("output_tail", process.Tail(collected.Output, 512)).
			Msg("Restore failed")
	}

	r.publish(RestoreRecord{
		Container:   req.Container,
		Filename:    req.OriginalName,
		PreserveIDs: req.PreserveIDs,
		Success:     result.Success,
		ExitCode:    result.ExitCode,
		Message:     result.Message,
		OutputTail:  process.Tail(result.Output, 4096),
		StartedAt:   started,
		Duration:    result.Duration,
	})
	return result, nil
}

func (r *Restorer) publish(rec RestoreRecord) {
	r.mu.RLock()
	observers := append([]func(RestoreRecord){}, r.observers...)
	r.mu.RUnlock()
	for _, fn := range observers {
		fn(rec)
	}
}

// cleanupUpload deletes a temporary upload. Failures are logged only.
func (r *Restorer) cleanupUpload(path string) {
	if path == "" {
		return
	}
	if _, err := removeIfExists(path); err != nil {
		logging.Warn().
			Err(fmt.Errorf("%w: %w", ErrUploadCleanup, err)).
			Str("file", filepath.Base(path)).
			Msg("Failed to delete uploaded archive")
	}
}

// SystemStatus fills in the import program fields of status.
func (r *Restorer) SystemStatus(status *SystemStatus) {
	if interpreter, script, err := r.cfg.Import.Resolve(); err != nil {
		status.ImportError = err.Error()
	} else {
		status.ImportAvailable = true
		status.ImportProgram = programLabel(interpreter, script)
	}
}
