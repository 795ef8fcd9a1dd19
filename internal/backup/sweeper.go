// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"context"
	"sync"

	"github.com/juju/clock"

	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
)

// Sweeper deletes artifact files and registry records older than the
// retention age. It is the backstop for jobs whose timer never fired, for
// example because the service restarted.
type Sweeper struct {
	m     *Manager
	clock clock.Clock

	// runMu serializes sweeps.
	runMu sync.Mutex
}

// NewSweeper creates a Sweeper for m's store and registry.
func NewSweeper(m *Manager, clk clock.Clock) *Sweeper {
	return &Sweeper{m: m, clock: clk}
}

// Serve runs one sweep after the initial delay and then one per interval
// until ctx is canceled. It implements suture.Service.
func (s *Sweeper) Serve(ctx context.Context) error {
	cfg := s.m.cfg
	logging.Info().
		Dur("initial_delay", cfg.SweepInitialDelay).
		Dur("interval", cfg.SweepInterval).
		Dur("max_age", cfg.RetentionMaxAge).
		Msg("Retention sweeper started")

	delay := cfg.SweepInitialDelay
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Retention sweeper stopped")
			return ctx.Err()
		case <-s.clock.After(delay):
		}
		s.Sweep()
		delay = cfg.SweepInterval
	}
}

// String implements fmt.Stringer for suture logging.
func (s *Sweeper) String() string {
	return "retention-sweeper"
}

// Sweep runs one retention pass. A failure on one item is logged and the
// pass continues.
func (s *Sweeper) Sweep() SweepReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.clock.Now()
	cutoff := now.Add(-s.m.cfg.RetentionMaxAge)
	report := SweepReport{StartedAt: now}

	files, err := s.m.store.Artifacts()
	if err != nil {
		report.Errors++
		logging.Error().Err(err).Msg("Retention sweep could not list artifacts")
	}
	for _, f := range files {
		if !f.ModTime.Before(cutoff) {
			continue
		}
		removed, err := s.m.store.Remove(f.Path)
		if err != nil {
			report.Errors++
			logging.Error().Err(err).Str("artifact", f.Name).Msg("Retention sweep failed to remove artifact")
			continue
		}
		if removed {
			report.FilesRemoved++
			logging.Debug().Str("artifact", f.Name).Time("modified", f.ModTime).Msg("Removed expired artifact")
		}
	}

	for _, job := range s.m.registry.Expired(cutoff) {
		if s.m.reclaim(job.ID, job.ArtifactPath, ReasonSwept, nil) {
			report.JobsReclaimed++
		}
	}

	report.Duration = s.clock.Now().Sub(now)
	metrics.RecordSweep(report.Duration, report.FilesRemoved, report.Errors)
	s.m.recordSweep(report)

	if report.FilesRemoved > 0 || report.JobsReclaimed > 0 || report.Errors > 0 {
		logging.Info().
			Int("files_removed", report.FilesRemoved).
			Int("jobs_reclaimed", report.JobsReclaimed).
			Int("errors", report.Errors).
			Msg("Retention sweep completed")
	}
	return report
}
