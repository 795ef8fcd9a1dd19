// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	juju "github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/tomtom215/archivist/internal/logging"
)

func newTestRegistry() (*Registry, *testclock.Clock) {
	clk := testclock.NewClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewRegistry(clk), clk
}

func mustCreate(t *testing.T, r *Registry, container, path string) Job {
	t.Helper()
	job, err := r.Create(NewRequest{
		Container:    container,
		ArtifactName: path,
		ArtifactPath: "/backups/" + path,
		Token:        "tok-" + container,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return job
}

func TestRegistryCreate(t *testing.T) {
	r, clk := newTestRegistry()

	job := mustCreate(t, r, "docs", "a.zip")
	if job.ID == "" {
		t.Fatal("expected an id")
	}
	if job.Status != StatusInitiating {
		t.Errorf("expected initiating, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress 0, got %d", job.Progress)
	}
	if !job.CreatedAt.Equal(clk.Now()) {
		t.Errorf("expected created at %v, got %v", clk.Now(), job.CreatedAt)
	}

	got, ok := r.Get(job.ID)
	if !ok {
		t.Fatal("expected job to be retrievable")
	}
	if got.Token != "tok-docs" {
		t.Errorf("expected token to be stored, got %q", got.Token)
	}
	if !r.Owns("/backups/a.zip") {
		t.Error("expected registry to own the artifact path")
	}
}

func TestRegistryCreateRejectsOwnedPath(t *testing.T) {
	r, _ := newTestRegistry()
	mustCreate(t, r, "docs", "a.zip")

	_, err := r.Create(NewRequest{Container: "docs", ArtifactName: "a.zip", ArtifactPath: "/backups/a.zip", Token: "x"})
	if !errors.Is(err, juju.AlreadyExists) {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 job, got %d", r.Len())
	}
}

func TestRegistryCreateRejectsIDCollision(t *testing.T) {
	r, _ := newTestRegistry()
	r.newID = func() string { return "fixed" }
	mustCreate(t, r, "docs", "a.zip")

	_, err := r.Create(NewRequest{Container: "docs", ArtifactName: "b.zip", ArtifactPath: "/backups/b.zip", Token: "x"})
	if !errors.Is(err, juju.AlreadyExists) {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
}

func TestRegistryIDsAreUnique(t *testing.T) {
	r, _ := newTestRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		job := mustCreate(t, r, "docs", fmt.Sprintf("%d.zip", i))
		if seen[job.ID] {
			t.Fatalf("duplicate id %s", job.ID)
		}
		seen[job.ID] = true
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")

	got, _ := r.Get(job.ID)
	got.Status = StatusError
	got.Token = "stolen"

	again, _ := r.Get(job.ID)
	if again.Status != StatusInitiating || again.Token != "tok-docs" {
		t.Errorf("mutating a returned job changed the registry: %+v", again)
	}
}

func TestRegistryUpdate(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		applied []bool
		final   Status
	}{
		{
			name:    "forward path",
			path:    []Status{StatusRunning, StatusCompleted, StatusDownloaded},
			applied: []bool{true, true, true},
			final:   StatusDownloaded,
		},
		{
			name:    "skip running",
			path:    []Status{StatusCompleted},
			applied: []bool{true},
			final:   StatusCompleted,
		},
		{
			name:    "no way back from error",
			path:    []Status{StatusError, StatusRunning, StatusCompleted},
			applied: []bool{true, false, false},
			final:   StatusError,
		},
		{
			name:    "completed cannot regress to running",
			path:    []Status{StatusRunning, StatusCompleted, StatusRunning},
			applied: []bool{true, true, false},
			final:   StatusCompleted,
		},
		{
			name:    "downloaded is terminal",
			path:    []Status{StatusRunning, StatusDownloaded, StatusCompleted, StatusError},
			applied: []bool{true, true, false, false},
			final:   StatusDownloaded,
		},
		{
			name:    "error cannot be downloaded",
			path:    []Status{StatusError, StatusDownloaded},
			applied: []bool{true, false},
			final:   StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegistry()
			job := mustCreate(t, r, "docs", "a.zip")

			for i, next := range tt.path {
				next := next
				got := r.Update(job.ID, func(j *Job) { j.Status = next })
				if got != tt.applied[i] {
					t.Errorf("step %d (%s): expected applied=%v, got %v", i, next, tt.applied[i], got)
				}
			}
			if final, _ := r.Get(job.ID); final.Status != tt.final {
				t.Errorf("expected final status %s, got %s", tt.final, final.Status)
			}
		})
	}
}

func TestRegistryUpdateKeepsIdentity(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")

	ok := r.Update(job.ID, func(j *Job) {
		j.ID = "other"
		j.Container = "other"
		j.ArtifactPath = "/etc/passwd"
		j.Token = "other"
		j.Progress = 50
	})
	if !ok {
		t.Fatal("expected update to apply")
	}

	got, _ := r.Get(job.ID)
	if got.Container != "docs" || got.ArtifactPath != "/backups/a.zip" || got.Token != "tok-docs" {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.Progress != 50 {
		t.Errorf("expected progress 50, got %d", got.Progress)
	}
}

func TestRegistryUpdateMissing(t *testing.T) {
	prev := logging.Logger()
	prevLevel := zerolog.GlobalLevel()
	var buf bytes.Buffer
	logging.SetLogger(logging.NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		logging.SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	r, _ := newTestRegistry()
	called := false
	if r.Update("missing", func(j *Job) { called = true }) {
		t.Error("expected update of missing job to report false")
	}
	if called {
		t.Error("update func must not run for a missing job")
	}
	if !strings.Contains(buf.String(), `"job_id":"missing"`) {
		t.Errorf("expected a debug line naming the job, got: %s", buf.String())
	}
}

func TestRegistryClaim(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")
	r.Update(job.ID, func(j *Job) { j.Status = StatusCompleted })

	claimed, err := r.Claim(job.ID, func(Job) error { return nil })
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed.Status != StatusDownloaded {
		t.Errorf("expected downloaded, got %s", claimed.Status)
	}

	_, err = r.Claim(job.ID, func(Job) error { return nil })
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on second claim, got %v", err)
	}
}

func TestRegistryClaimCheckFailureLeavesState(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")
	r.Update(job.ID, func(j *Job) { j.Status = StatusCompleted })

	_, err := r.Claim(job.ID, func(Job) error { return ErrForbidden })
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if got, _ := r.Get(job.ID); got.Status != StatusCompleted {
		t.Errorf("expected status to stay completed, got %s", got.Status)
	}
}

func TestRegistryClaimMissing(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Claim("missing", func(Job) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryClaimConcurrent(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")
	r.Update(job.ID, func(j *Job) { j.Status = StatusCompleted })

	var wins, invalid atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := r.Claim(job.ID, func(j Job) error {
				if !j.Status.Downloadable() {
					return fmt.Errorf("%w: %s", ErrInvalidState, j.Status)
				}
				return nil
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrInvalidState):
				invalid.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly 1 successful claim, got %d", wins.Load())
	}
	if invalid.Load() != 31 {
		t.Errorf("expected 31 invalid-state rejections, got %d", invalid.Load())
	}
}

func TestRegistryDelete(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")

	removed, ok := r.Delete(job.ID)
	if !ok || removed.ID != job.ID {
		t.Fatalf("expected to delete %s, got %+v ok=%v", job.ID, removed, ok)
	}
	if _, ok := r.Get(job.ID); ok {
		t.Error("expected job to be gone")
	}
	if r.Owns(job.ArtifactPath) {
		t.Error("expected artifact path to be released")
	}
	if _, ok := r.Delete(job.ID); ok {
		t.Error("expected second delete to be a no-op")
	}

	// The path can be reused once released.
	mustCreate(t, r, "docs", "a.zip")
}

func TestRegistryDeleteIf(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")

	if _, ok := r.DeleteIf(job.ID, func(Job) bool { return false }); ok {
		t.Error("expected predicate to keep the job")
	}
	if _, ok := r.Get(job.ID); !ok {
		t.Fatal("expected job to remain")
	}
	if _, ok := r.DeleteIf(job.ID, func(j Job) bool { return j.Status == StatusInitiating }); !ok {
		t.Error("expected predicate to allow deletion")
	}
}

func TestRegistryListByContainer(t *testing.T) {
	r, clk := newTestRegistry()
	old := mustCreate(t, r, "docs", "old.zip")
	clk.Advance(4 * time.Minute)
	fresh := mustCreate(t, r, "docs", "fresh.zip")
	mustCreate(t, r, "media", "other.zip")
	clk.Advance(90 * time.Second)

	jobs := r.ListByContainer("docs", 5*time.Minute, clk.Now())
	if len(jobs) != 1 || jobs[0].ID != fresh.ID {
		t.Errorf("expected only the fresh job, got %+v", jobs)
	}

	all := r.ListByContainer("docs", time.Hour, clk.Now())
	if len(all) != 2 || all[0].ID != old.ID {
		t.Errorf("expected both jobs oldest first, got %+v", all)
	}

	if got := r.ListByContainer("empty", time.Hour, clk.Now()); len(got) != 0 {
		t.Errorf("expected no jobs, got %d", len(got))
	}
}

func TestRegistryExpired(t *testing.T) {
	r, clk := newTestRegistry()
	old := mustCreate(t, r, "docs", "old.zip")
	clk.Advance(11 * time.Minute)
	mustCreate(t, r, "docs", "new.zip")

	expired := r.Expired(clk.Now().Add(-10 * time.Minute))
	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Errorf("expected only the old job, got %+v", expired)
	}
	if len(r.All()) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(r.All()))
	}
}

func TestRegistrySubscribe(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")

	updates, cancel, ok := r.Subscribe(job.ID)
	if !ok {
		t.Fatal("expected subscription")
	}
	defer cancel()

	r.Update(job.ID, func(j *Job) { j.Status = StatusRunning; j.Progress = 50 })
	r.Update(job.ID, func(j *Job) { j.Status = StatusCompleted; j.Progress = 100 })

	// The slow receiver sees the latest state, not a stale one.
	got := <-updates
	if got.Status != StatusCompleted || got.Progress != 100 {
		t.Errorf("expected latest completed state, got %s/%d", got.Status, got.Progress)
	}

	r.Delete(job.ID)
	if _, open := <-updates; open {
		t.Error("expected channel to close on delete")
	}
}

func TestRegistrySubscribeCancel(t *testing.T) {
	r, _ := newTestRegistry()
	job := mustCreate(t, r, "docs", "a.zip")

	updates, cancel, _ := r.Subscribe(job.ID)
	cancel()
	cancel()

	if _, open := <-updates; open {
		t.Error("expected channel to close on cancel")
	}
	// Deleting after cancel must not close the channel again.
	r.Delete(job.ID)
}

func TestRegistrySubscribeMissing(t *testing.T) {
	r, _ := newTestRegistry()
	if _, _, ok := r.Subscribe("missing"); ok {
		t.Error("expected no subscription for a missing job")
	}
}
