// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"strings"

	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
	"github.com/tomtom215/archivist/internal/process"
)

const (
	// progressRunning is reported once the export has produced output.
	// The export program gives no finer progress signal.
	progressRunning = 50

	progressDone = 100

	// lastErrorLimit caps the stderr tail kept on a job.
	lastErrorLimit = 2048
)

// consume drains an export's events in order and applies them to the job.
// Events for a job that has been reclaimed are ignored.
func (m *Manager) consume(id string, exec process.Execution) {
	defer m.wg.Done()

	started := false
	for ev := range exec.Events() {
		switch ev.Kind {
		case process.EventStdout:
			if !started {
				started = true
				metrics.RecordProcessStart("export", true)
			}
			m.onStdout(id, ev.Text)
		case process.EventStderr:
			if !started {
				started = true
				metrics.RecordProcessStart("export", true)
			}
			m.onStderr(id, ev.Text)
		case process.EventExit:
			if !started {
				metrics.RecordProcessStart("export", true)
			}
			m.onExit(id, ev.ExitCode)
		case process.EventStartFailed:
			metrics.RecordProcessStart("export", false)
			m.fail(id, startError("export", ev.Err))
		}
	}

	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
}

func (m *Manager) onStdout(id, text string) {
	logging.Debug().Str("job_id", id).Str("stream", "stdout").Msg(strings.TrimRight(text, "\n"))

	transitioned := false
	m.registry.Update(id, func(j *Job) {
		if j.Status == StatusInitiating {
			j.Status = StatusRunning
			j.Progress = progressRunning
			transitioned = true
		}
	})
	if transitioned {
		metrics.RecordJobTransition(string(StatusRunning))
	}
}

func (m *Manager) onStderr(id, text string) {
	logging.Warn().Str("job_id", id).Str("stream", "stderr").Msg(strings.TrimRight(text, "\n"))

	m.registry.Update(id, func(j *Job) {
		if j.LastError != "" {
			text = j.LastError + "\n" + text
		}
		j.LastError = process.Tail(text, lastErrorLimit)
	})
}

func (m *Manager) onExit(id string, code int) {
	job, ok := m.registry.Get(id)
	if !ok {
		return
	}

	if code != 0 {
		m.fail(id, exitError("export", code))
		return
	}

	info, exists := m.store.Stat(job.ArtifactPath)
	if !exists {
		m.fail(id, artifactMissingError(job.ArtifactName))
		return
	}

	now := m.clock.Now()
	if m.registry.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = progressDone
		j.Size = info.Size()
		j.CompletedAt = now
	}) {
		metrics.RecordJobTransition(string(StatusCompleted))
		metrics.RecordArtifactSize(info.Size())
		logging.Info().
			Str("job_id", id).
			Str("artifact", job.ArtifactName).
			Int64("size", info.Size()).
			Msg("Backup completed")
	}
}

// fail moves a job to the error state. Captured stderr, if any, is kept
// after the error message.
func (m *Manager) fail(id string, err error) {
	if m.registry.Update(id, func(j *Job) {
		stderr := strings.TrimSpace(j.LastError)
		j.Status = StatusError
		j.LastError = err.Error()
		if stderr != "" {
			j.LastError += ": " + process.Tail(stderr, lastErrorLimit/4)
		}
	}) {
		metrics.RecordJobTransition(string(StatusError))
		logging.Error().Err(err).Str("job_id", id).Msg("Backup failed")
	}
}
