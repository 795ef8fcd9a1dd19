// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/tomtom215/archivist/internal/logging"
)

// NewRequest carries what the registry needs to create a job record.
type NewRequest struct {
	Container    string
	ArtifactName string
	ArtifactPath string
	Token        string
}

// Registry is the in-memory set of live backup jobs. All methods are safe
// for concurrent use and every read returns a copy.
type Registry struct {
	clock clock.Clock
	newID func() string

	mu    sync.RWMutex
	jobs  map[string]*Job
	paths map[string]string
	subs  map[string][]chan Job
}

// NewRegistry creates an empty Registry stamping records with clk.
func NewRegistry(clk clock.Clock) *Registry {
	return &Registry{
		clock: clk,
		newID: uuid.NewString,
		jobs:  make(map[string]*Job),
		paths: make(map[string]string),
		subs:  make(map[string][]chan Job),
	}
}

// Create inserts a job in the initiating state and returns it. It fails if
// the generated identifier collides or another live job owns the artifact path.
func (r *Registry) Create(req NewRequest) (Job, error) {
	id := r.newID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[id]; exists {
		return Job{}, errors.AlreadyExistsf("job %s", id)
	}
	if owner, owned := r.paths[req.ArtifactPath]; owned {
		return Job{}, errors.AlreadyExistsf("artifact %s is owned by job %s", req.ArtifactName, owner)
	}

	job := &Job{
		ID:           id,
		Container:    req.Container,
		ArtifactName: req.ArtifactName,
		ArtifactPath: req.ArtifactPath,
		Status:       StatusInitiating,
		CreatedAt:    r.clock.Now(),
		Token:        req.Token,
	}
	r.jobs[id] = job
	r.paths[req.ArtifactPath] = id
	return *job, nil
}

// Get returns a copy of the job with the given id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Owns reports whether a live job owns the artifact path.
func (r *Registry) Owns(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.paths[path]
	return ok
}

// Update applies fn to the job and reports whether the change was kept.
// A change is discarded when the job is gone or when fn moves the status
// backwards; identity fields cannot be changed.
func (r *Registry) Update(id string, fn func(*Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok {
		logging.Debug().Str("job_id", id).Msg("Ignored update for unknown job")
		return false
	}

	next := *current
	fn(&next)

	if next.Status != current.Status && !current.Status.CanTransition(next.Status) {
		logging.Debug().
			Str("job_id", id).
			Str("from", string(current.Status)).
			Str("to", string(next.Status)).
			Msg("Discarded non-monotonic job transition")
		return false
	}

	next.ID = current.ID
	next.Container = current.Container
	next.ArtifactName = current.ArtifactName
	next.ArtifactPath = current.ArtifactPath
	next.CreatedAt = current.CreatedAt
	next.Token = current.Token

	*current = next
	r.notifyLocked(id, next)
	return true
}

// Claim atomically runs check against the job and, if it returns nil, moves
// the job to downloaded. At most one Claim per job can succeed because the
// downloaded state is not downloadable.
func (r *Registry) Claim(id string, check func(Job) error) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: backup job %s", ErrNotFound, id)
	}
	if err := check(*job); err != nil {
		return Job{}, err
	}
	if !job.Status.CanTransition(StatusDownloaded) {
		return Job{}, fmt.Errorf("%w: backup is %s", ErrInvalidState, job.Status)
	}

	job.Status = StatusDownloaded
	r.notifyLocked(id, *job)
	return *job, nil
}

// Delete removes the job and returns the removed record. Deleting an absent
// job is a no-op.
func (r *Registry) Delete(id string) (Job, bool) {
	return r.DeleteIf(id, nil)
}

// DeleteIf removes the job only when pred is nil or returns true for it.
func (r *Registry) DeleteIf(id string, pred func(Job) bool) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	if pred != nil && !pred(*job) {
		return Job{}, false
	}

	delete(r.jobs, id)
	if r.paths[job.ArtifactPath] == id {
		delete(r.paths, job.ArtifactPath)
	}
	for _, ch := range r.subs[id] {
		close(ch)
	}
	delete(r.subs, id)
	return *job, true
}

// ListByContainer returns the jobs for container whose lifetime has not
// elapsed at now, oldest first.
func (r *Registry) ListByContainer(container string, ttl time.Duration, now time.Time) []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []Job
	for _, job := range r.jobs {
		if job.Container != container {
			continue
		}
		if !job.CreatedAt.Add(ttl).After(now) {
			continue
		}
		jobs = append(jobs, *job)
	}
	sortJobs(jobs)
	return jobs
}

// Expired returns jobs created strictly before cutoff, oldest first.
func (r *Registry) Expired(cutoff time.Time) []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []Job
	for _, job := range r.jobs {
		if job.CreatedAt.Before(cutoff) {
			jobs = append(jobs, *job)
		}
	}
	sortJobs(jobs)
	return jobs
}

// All returns every live job, oldest first.
func (r *Registry) All() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, *job)
	}
	sortJobs(jobs)
	return jobs
}

// Len returns the number of live jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Subscribe returns a channel receiving the latest job state after each
// change. Intermediate states may be coalesced when the receiver is slow.
// The channel is closed when the job is deleted or cancel is called.
func (r *Registry) Subscribe(id string) (<-chan Job, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return nil, func() {}, false
	}

	ch := make(chan Job, 1)
	r.subs[id] = append(r.subs[id], ch)

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		subs := r.subs[id]
		for i, c := range subs {
			if c == ch {
				r.subs[id] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(r.subs[id]) == 0 {
			delete(r.subs, id)
		}
	}
	return ch, cancel, true
}

// notifyLocked delivers job to every subscriber, replacing an undelivered
// older state. The registry is the only sender, so draining under the lock
// cannot race with another send.
func (r *Registry) notifyLocked(id string, job Job) {
	for _, ch := range r.subs[id] {
		select {
		case ch <- job:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- job
		}
	}
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}
