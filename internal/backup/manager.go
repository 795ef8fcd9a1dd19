// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
manager.go - Backup Job Manager

This file contains the Manager, which owns the lifecycle of backup jobs from
creation to reclaim.

Manager Responsibilities:
  - Naming and registering jobs
  - Launching the export program and consuming its events
  - Arming and cancelling the per-job expiration timer
  - Reclaiming jobs (artifact file and registry record)

Process Ownership:
Export programs run under the Manager's own context, not the context of the
request that created them, so a client disconnecting after the 202 response
does not cancel its backup. Shutdown cancels every running export.

Thread Safety:
Job state lives in the Registry. The Manager's own maps (timers, running
programs) are protected by a mutex that is never held while calling into
the Registry's subscribers or the process layer.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
	"github.com/tomtom215/archivist/internal/process"
)

// maxNameAttempts bounds the suffixes tried when several jobs for one
// container are created within the same second.
const maxNameAttempts = 100

// Manager creates backup jobs and drives them through their lifecycle.
type Manager struct {
	cfg      Config
	registry *Registry
	store    *Store
	launcher process.Launcher
	clock    clock.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[string]clock.Timer
	runs   map[string]process.Execution
	closed bool
	wg     sync.WaitGroup

	lastSweep *SweepReport
}

// NewManager creates a Manager. The registry is injected so callers and
// tests can inspect it; the clock drives job timestamps and expiration.
func NewManager(cfg Config, registry *Registry, launcher process.Launcher, clk clock.Clock) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup configuration: %w", err)
	}
	store, err := NewStore(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = NewRegistry(clk)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		registry: registry,
		store:    store,
		launcher: launcher,
		clock:    clk,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[string]clock.Timer),
		runs:     make(map[string]process.Execution),
	}, nil
}

// Registry returns the job registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Store returns the artifact store.
func (m *Manager) Store() *Store {
	return m.store
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Create registers a backup job for container and launches the export
// program in the background. The job is returned in the initiating state.
func (m *Manager) Create(container, token string) (*CreateResult, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: a capability token is required", ErrUnauthorized)
	}
	if err := ValidateContainer(container); err != nil {
		return nil, err
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: backup manager is shutting down", ErrInvalidState)
	}

	if _, _, err := m.cfg.Export.Resolve(); err != nil {
		metrics.RecordProcessStart("export", false)
		return nil, fmt.Errorf("export program unavailable: %w", err)
	}

	job, err := m.register(container, token)
	if err != nil {
		return nil, err
	}

	cmd, err := m.cfg.Export.Command(container, job.ArtifactPath)
	if err != nil {
		m.registry.Delete(job.ID)
		metrics.RecordProcessStart("export", false)
		return nil, fmt.Errorf("export program unavailable: %w", err)
	}

	if !m.start(job.ID) {
		m.registry.Delete(job.ID)
		return nil, fmt.Errorf("%w: backup manager is shutting down", ErrInvalidState)
	}
	metrics.RecordJobCreated()
	m.launch(job, cmd)

	logging.Info().
		Str("job_id", job.ID).
		Str("container", container).
		Str("artifact", job.ArtifactName).
		Msg("Backup job created")

	return &CreateResult{
		ID:               job.ID,
		Status:           job.Status,
		Filename:         job.ArtifactName,
		ExpiresInSeconds: int(m.cfg.JobTTL / time.Second),
	}, nil
}

// register picks a free artifact name for container and inserts the record.
func (m *Manager) register(container, token string) (Job, error) {
	now := m.clock.Now()
	var lastErr error
	for seq := 1; seq <= maxNameAttempts; seq++ {
		name := ArtifactName(container, now, seq)
		path := m.store.Path(name)
		if m.store.Exists(path) {
			continue
		}
		job, err := m.registry.Create(NewRequest{
			Container:    container,
			ArtifactName: name,
			ArtifactPath: path,
			Token:        token,
		})
		if err == nil {
			return job, nil
		}
		lastErr = err
	}
	return Job{}, fmt.Errorf("failed to allocate artifact name for %s: %w", container, lastErr)
}

// start arms the expiration timer and reserves an event consumer in the
// same critical section that Shutdown uses, so a job created while the
// manager is closing is refused rather than left behind with a live timer.
func (m *Manager) start(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.timers[id] = m.clock.AfterFunc(m.cfg.JobTTL, func() {
		m.expire(id)
	})
	m.wg.Add(1)
	return true
}

// launch runs the export for a job that start has accepted.
func (m *Manager) launch(job Job, cmd process.Command) {
	exec := m.launcher.Launch(m.ctx, cmd)

	m.mu.Lock()
	m.runs[job.ID] = exec
	m.mu.Unlock()

	// An abort that landed before runs was populated could not stop it.
	if _, live := m.registry.Get(job.ID); !live {
		exec.Stop()
	}

	go m.consume(job.ID, exec)
}

// Status returns a snapshot of a job after checking the caller's token and
// container against it.
func (m *Manager) Status(id, token, container string) (Snapshot, error) {
	job, err := m.authorize(id, token, container)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(job), nil
}

// authorize applies the access checks shared by status, watch and abort.
func (m *Manager) authorize(id, token, container string) (Job, error) {
	if token == "" {
		return Job{}, fmt.Errorf("%w: a capability token is required", ErrUnauthorized)
	}
	job, ok := m.registry.Get(id)
	if !ok {
		return Job{}, fmt.Errorf("%w: backup job %s", ErrNotFound, id)
	}
	if err := checkAccess(job, token, container); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Snapshot renders a job for callers, checking the artifact on disk.
func (m *Manager) Snapshot(job Job) Snapshot {
	snap := Snapshot{
		ID:        job.ID,
		Container: job.Container,
		Filename:  job.ArtifactName,
		Status:    job.Status,
		Progress:  job.Progress,
		Size:      job.Size,
		CreatedAt: job.CreatedAt,
		Error:     job.LastError,
		Tracked:   true,
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		snap.CompletedAt = &completed
	}
	snap.FileExists = m.store.Exists(job.ArtifactPath)
	snap.RemainingSeconds = remainingSeconds(job.CreatedAt.Add(m.cfg.JobTTL), m.clock.Now())
	return snap
}

// List returns the live jobs for container plus recent artifacts found on
// disk without a registry record, for example from before a restart.
func (m *Manager) List(container string) ([]Snapshot, error) {
	if err := ValidateContainer(container); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	jobs := m.registry.ListByContainer(container, m.cfg.JobTTL, now)
	snapshots := make([]Snapshot, 0, len(jobs))
	for _, job := range jobs {
		snapshots = append(snapshots, m.Snapshot(job))
	}

	files, err := m.store.Artifacts()
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to scan artifact directory for untracked backups")
		return snapshots, nil
	}
	for _, f := range files {
		if f.Container != container || m.registry.Owns(f.Path) {
			continue
		}
		if now.Sub(f.ModTime) > m.cfg.UntrackedWindow {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Container:        container,
			Filename:         f.Name,
			Status:           StatusCompleted,
			Progress:         100,
			Size:             f.Size,
			CreatedAt:        f.ModTime,
			FileExists:       true,
			RemainingSeconds: remainingSeconds(f.ModTime.Add(m.cfg.RetentionMaxAge), now),
		})
	}
	return snapshots, nil
}

// Watch returns the current snapshot of a job and a channel of later job
// states. The channel closes when the job is reclaimed or stop is called.
func (m *Manager) Watch(id, token, container string) (Snapshot, <-chan Job, func(), error) {
	job, err := m.authorize(id, token, container)
	if err != nil {
		return Snapshot{}, nil, nil, err
	}
	updates, stop, ok := m.registry.Subscribe(id)
	if !ok {
		return Snapshot{}, nil, nil, fmt.Errorf("%w: backup job %s", ErrNotFound, id)
	}
	return m.Snapshot(job), updates, stop, nil
}

// Abort cancels a job on behalf of its owner: the export is stopped and the
// job reclaimed.
func (m *Manager) Abort(id, token, container string) error {
	job, err := m.authorize(id, token, container)
	if err != nil {
		return err
	}
	m.reclaim(job.ID, job.ArtifactPath, ReasonAborted, nil)
	return nil
}

// Reclaim removes a job's artifact and record. It is idempotent.
func (m *Manager) Reclaim(id string) {
	job, ok := m.registry.Get(id)
	if !ok {
		return
	}
	m.reclaim(id, job.ArtifactPath, ReasonAborted, nil)
}

// expire is the expiration timer callback. A job claimed by a download is
// left to the download path.
func (m *Manager) expire(id string) {
	job, ok := m.registry.Get(id)
	if !ok {
		return
	}
	m.reclaim(id, job.ArtifactPath, ReasonExpired, func(j Job) bool {
		return j.Status != StatusDownloaded
	})
}

// reclaim deletes the registry record (when pred allows), cancels the
// expiration timer, stops a still-running export and removes the artifact.
// The artifact is removed even when the record is already gone.
func (m *Manager) reclaim(id, path string, reason ReclaimReason, pred func(Job) bool) bool {
	job, deleted := m.registry.DeleteIf(id, pred)

	m.mu.Lock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	exec := m.runs[id]
	m.mu.Unlock()

	if !deleted {
		if _, still := m.registry.Get(id); still {
			// pred kept the record; its owner will reclaim it.
			return false
		}
	}

	if exec != nil {
		exec.Stop()
	}

	if deleted {
		path = job.ArtifactPath
	}
	removed := false
	if path != "" {
		var err error
		removed, err = m.store.Remove(path)
		if err != nil {
			logging.Error().Err(err).Str("job_id", id).Str("path", path).Msg("Failed to remove backup artifact")
		}
	}

	if deleted {
		metrics.RecordJobReclaimed(string(reason))
		logging.Info().
			Str("job_id", id).
			Str("reason", string(reason)).
			Bool("file_removed", removed).
			Msg("Backup job reclaimed")
	}
	return deleted
}

// Shutdown stops every running export and waits for their event consumers.
// Jobs and artifacts are left for the next start's sweep.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info().Msg("Backup manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backup manager shutdown: %w", ctx.Err())
	}
}

// SystemStatus reports whether exports can run.
func (m *Manager) SystemStatus() SystemStatus {
	status := SystemStatus{
		ArtifactDir: m.store.Dir(),
		ActiveJobs:  m.registry.Len(),
		ServerTime:  m.clock.Now(),
	}

	if err := m.store.Writable(); err != nil {
		status.StoreError = err.Error()
	} else {
		status.StoreWritable = true
	}

	if interpreter, script, err := m.cfg.Export.Resolve(); err != nil {
		status.ExportError = err.Error()
	} else {
		status.ExportAvailable = true
		status.ExportProgram = programLabel(interpreter, script)
	}

	m.mu.Lock()
	if m.lastSweep != nil {
		report := *m.lastSweep
		status.LastSweep = &report
	}
	m.mu.Unlock()
	return status
}

func (m *Manager) recordSweep(report SweepReport) {
	m.mu.Lock()
	m.lastSweep = &report
	m.mu.Unlock()
}

func programLabel(interpreter, script string) string {
	if interpreter == "" {
		return script
	}
	return interpreter + " " + script
}

func remainingSeconds(deadline, now time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}
