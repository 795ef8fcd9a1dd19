// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"crypto/subtle"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
)

// Download is a claimed artifact being streamed to a caller. Closing it
// reclaims the job whether or not the stream completed; a caller that
// disconnects mid-transfer cannot retry.
type Download struct {
	m    *Manager
	job  Job
	file *os.File
	size int64

	sent      atomic.Int64
	completed atomic.Bool
	once      sync.Once
}

// OpenDownload claims a job's artifact for streaming. Checks run in a fixed
// order: token present, job exists, container matches, token matches,
// status allows download, artifact exists. The status check and the flip to
// downloaded are a single atomic step, so of several concurrent callers
// exactly one succeeds and the rest see ErrInvalidState. The existence
// check runs inside the claim, so a running export whose file has not
// appeared yet is left untouched. Only a file that vanishes between the
// check and the open reclaims the claimed job.
func (m *Manager) OpenDownload(id, token, container string) (*Download, error) {
	if token == "" {
		metrics.RecordDownload("rejected", 0)
		return nil, fmt.Errorf("%w: a capability token is required", ErrUnauthorized)
	}

	job, err := m.registry.Claim(id, func(j Job) error {
		if err := checkAccess(j, token, container); err != nil {
			return err
		}
		if !j.Status.Downloadable() {
			return fmt.Errorf("%w: backup is %s", ErrInvalidState, j.Status)
		}
		if !m.store.Exists(j.ArtifactPath) {
			return fmt.Errorf("%w: artifact %s", ErrNotFound, j.ArtifactName)
		}
		return nil
	})
	if err != nil {
		metrics.RecordDownload("rejected", 0)
		return nil, err
	}
	metrics.RecordJobTransition(string(StatusDownloaded))

	f, err := os.Open(job.ArtifactPath)
	if err != nil {
		// The claim cannot be undone, so the job goes with its file.
		logging.Warn().Err(err).Str("job_id", job.ID).Msg("Claimed backup artifact could not be opened")
		m.reclaim(job.ID, job.ArtifactPath, ReasonDownloaded, nil)
		metrics.RecordDownload("rejected", 0)
		return nil, fmt.Errorf("%w: artifact %s", ErrNotFound, job.ArtifactName)
	}

	d := &Download{m: m, job: job, file: f}
	if info, err := f.Stat(); err == nil && !job.CompletedAt.IsZero() {
		d.size = info.Size()
	}

	logging.Info().
		Str("job_id", job.ID).
		Str("artifact", job.ArtifactName).
		Int64("size", d.size).
		Msg("Backup download started")
	return d, nil
}

// Name is the artifact file name.
func (d *Download) Name() string {
	return d.job.ArtifactName
}

// Size is the artifact length when the export had completed before the
// claim. It is zero for an artifact still being written.
func (d *Download) Size() int64 {
	return d.size
}

// Job returns the claimed job record.
func (d *Download) Job() Job {
	return d.job
}

// Read implements io.Reader.
func (d *Download) Read(p []byte) (int, error) {
	n, err := d.file.Read(p)
	d.sent.Add(int64(n))
	return n, err
}

// MarkComplete records that the whole artifact reached the caller.
func (d *Download) MarkComplete() {
	d.completed.Store(true)
}

// Close releases the file and reclaims the job. It is safe to call more
// than once.
func (d *Download) Close() error {
	var closeErr error
	d.once.Do(func() {
		closeErr = d.file.Close()

		result := "ok"
		if !d.completed.Load() {
			result = "partial"
			logging.Warn().
				Str("job_id", d.job.ID).
				Int64("bytes_sent", d.sent.Load()).
				Msg("Backup download ended before completion; artifact reclaimed anyway")
		}
		metrics.RecordDownload(result, d.sent.Load())

		d.m.reclaim(d.job.ID, d.job.ArtifactPath, ReasonDownloaded, nil)
	})
	return closeErr
}

// checkAccess verifies that the caller's token, and container when one is
// given, match the job.
func checkAccess(job Job, token, container string) error {
	if container != "" && container != job.Container {
		return fmt.Errorf("%w: backup does not belong to container %q", ErrForbidden, container)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(job.Token)) != 1 {
		return fmt.Errorf("%w: token does not match backup", ErrForbidden)
	}
	return nil
}
