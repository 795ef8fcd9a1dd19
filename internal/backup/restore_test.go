// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/tomtom215/archivist/internal/process"
)

type restoreFixture struct {
	r        *Restorer
	launcher *fakeLauncher
	dir      string
}

func newTestRestorer(t *testing.T) *restoreFixture {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultRestoreConfig()
	cfg.TempDir = filepath.Join(dir, "uploads")
	cfg.Import = process.Program{Candidates: []string{writeProgram(t, dir, "import.sh", "exit 0")}}
	cfg.MaxUploadBytes = 1 << 10

	launcher := newFakeLauncher()
	r, err := NewRestorer(cfg, launcher, testclock.NewClock(time.Now()))
	if err != nil {
		t.Fatalf("NewRestorer failed: %v", err)
	}
	return &restoreFixture{r: r, launcher: launcher, dir: dir}
}

func (f *restoreFixture) upload(t *testing.T, content string) string {
	t.Helper()
	path, _, err := f.r.SaveUpload(strings.NewReader(content), "backup.zip")
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	return path
}

func TestRestoreSuccess(t *testing.T) {
	f := newTestRestorer(t)
	f.launcher.script = func(e *fakeExecution) {
		e.stdout("Restored 12 documents\n")
		e.exit(0)
	}

	var records []RestoreRecord
	var mu sync.Mutex
	f.r.OnComplete(func(rec RestoreRecord) {
		mu.Lock()
		records = append(records, rec)
		mu.Unlock()
	})

	archive := f.upload(t, "PK")
	res, err := f.r.Restore(context.Background(), RestoreRequest{
		ArchivePath:  archive,
		OriginalName: "backup.zip",
		Container:    "docs",
	})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !res.Success {
		t.Errorf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Output, "Restored 12 documents") {
		t.Errorf("expected program output, got %q", res.Output)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("expected upload to be deleted after success")
	}

	exec := f.launcher.next(t)
	if got := strings.Join(exec.cmd.Args, " "); got != archive+" docs" {
		t.Errorf("expected args %q, got %q", archive+" docs", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(records) != 1 || !records[0].Success || records[0].Container != "docs" {
		t.Errorf("expected one successful record, got %+v", records)
	}
}

func TestRestorePreserveIDs(t *testing.T) {
	f := newTestRestorer(t)
	f.launcher.script = func(e *fakeExecution) { e.exit(0) }

	archive := f.upload(t, "PK")
	if _, err := f.r.Restore(context.Background(), RestoreRequest{ArchivePath: archive, Container: "docs", PreserveIDs: true}); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	exec := f.launcher.next(t)
	args := exec.cmd.Args
	if len(args) != 3 || args[2] != PreserveIDsFlag {
		t.Errorf("expected %s as third argument, got %v", PreserveIDsFlag, args)
	}
}

func TestRestoreFailure(t *testing.T) {
	f := newTestRestorer(t)
	f.launcher.script = func(e *fakeExecution) {
		e.stdout("Reading archive\n")
		e.stderr("Error: invalid zip header\n")
		e.exit(1)
	}

	archive := f.upload(t, "not a zip")
	res, err := f.r.Restore(context.Background(), RestoreRequest{ArchivePath: archive, Container: "docs"})
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "invalid zip header") || !strings.Contains(res.Output, "Reading archive") {
		t.Errorf("expected combined output, got %q", res.Output)
	}
	if !strings.Contains(res.Message, "exited with code 1") {
		t.Errorf("expected exit code in message, got %q", res.Message)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("expected upload to be deleted after failure")
	}
}

func TestRestoreStartFailure(t *testing.T) {
	f := newTestRestorer(t)
	f.launcher.startFail = errors.New("permission denied")

	archive := f.upload(t, "PK")
	res, err := f.r.Restore(context.Background(), RestoreRequest{ArchivePath: archive, Container: "docs"})
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if res.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(res.Message, "permission denied") {
		t.Errorf("expected launch error in message, got %q", res.Message)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("expected upload to be deleted")
	}
}

func TestRestoreProgramNotFound(t *testing.T) {
	f := newTestRestorer(t)
	f.r.cfg.Import = process.Program{Candidates: []string{filepath.Join(f.dir, "missing.js")}}

	archive := f.upload(t, "PK")
	_, err := f.r.Restore(context.Background(), RestoreRequest{ArchivePath: archive, Container: "docs"})
	if !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("expected ErrProgramNotFound, got %v", err)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("expected upload to be deleted")
	}
}

func TestRestoreInvalidContainer(t *testing.T) {
	f := newTestRestorer(t)

	archive := f.upload(t, "PK")
	_, err := f.r.Restore(context.Background(), RestoreRequest{ArchivePath: archive, Container: "../docs"})
	if !errors.Is(err, ErrNotValid) {
		t.Errorf("expected ErrNotValid, got %v", err)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("expected upload to be deleted")
	}
}

func TestRestoreSurvivesCallerCancel(t *testing.T) {
	f := newTestRestorer(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.launcher.script = func(e *fakeExecution) {
		cancel()
		e.stdout("still restoring\n")
		go func() {
			time.Sleep(20 * time.Millisecond)
			e.exit(0)
		}()
	}

	res, err := f.r.Restore(ctx, RestoreRequest{ArchivePath: f.upload(t, "PK"), Container: "docs"})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !res.Success {
		t.Errorf("expected the restore to run to completion, got %+v", res)
	}
}

func TestSaveUpload(t *testing.T) {
	f := newTestRestorer(t)

	path, n, err := f.r.SaveUpload(strings.NewReader("hello"), "../../etc/my backup.zip")
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 bytes, got %d", n)
	}
	if filepath.Dir(path) != f.r.cfg.TempDir {
		t.Errorf("expected upload inside %s, got %s", f.r.cfg.TempDir, path)
	}
	if !strings.HasSuffix(path, "-my_backup.zip") {
		t.Errorf("expected sanitized name suffix, got %s", filepath.Base(path))
	}

	other, _, err := f.r.SaveUpload(strings.NewReader("hello"), "../../etc/my backup.zip")
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if other == path {
		t.Error("expected unique upload names")
	}
}

func TestSaveUploadTooLarge(t *testing.T) {
	f := newTestRestorer(t)

	_, _, err := f.r.SaveUpload(strings.NewReader(strings.Repeat("x", 2048)), "big.zip")
	if !errors.Is(err, ErrNotValid) || !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("expected ErrNotValid and ErrUploadTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(f.r.cfg.TempDir)
	if len(entries) != 0 {
		t.Errorf("expected partial upload to be removed, found %d files", len(entries))
	}
}

func TestDiscardUpload(t *testing.T) {
	f := newTestRestorer(t)
	path := f.upload(t, "unused")

	f.r.Discard(path)
	f.r.Discard(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected upload to be removed, stat err = %v", err)
	}
}

func TestSanitizeUploadName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"backup.zip", "backup.zip"},
		{"my backup (1).zip", "my_backup__1_.zip"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\backup.zip`, "backup.zip"},
		{".hidden.zip", "hidden.zip"},
		{"", "upload.zip"},
		{"..", "upload.zip"},
		{strings.Repeat("a", 150) + ".zip", strings.Repeat("a", 96) + ".zip"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeUploadName(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRestoreConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RestoreConfig)
		errMsg string
	}{
		{"defaults", func(*RestoreConfig) {}, ""},
		{"missing temp dir", func(c *RestoreConfig) { c.TempDir = "" }, "RESTORE_TEMP_DIR"},
		{"no candidates", func(c *RestoreConfig) { c.Import.Candidates = nil }, "RESTORE_IMPORT_CANDIDATES"},
		{"zero upload limit", func(c *RestoreConfig) { c.MaxUploadBytes = 0 }, "RESTORE_MAX_UPLOAD"},
		{"negative timeout", func(c *RestoreConfig) { c.Timeout = -time.Second }, "RESTORE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRestoreConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing dir", func(c *Config) { c.Dir = "" }, "BACKUP_DIR"},
		{"no candidates", func(c *Config) { c.Export.Candidates = nil }, "BACKUP_EXPORT_CANDIDATES"},
		{"zero ttl", func(c *Config) { c.JobTTL = 0 }, "BACKUP_JOB_TTL"},
		{"retention shorter than ttl", func(c *Config) { c.RetentionMaxAge = time.Minute }, "must not be shorter"},
		{"zero interval", func(c *Config) { c.SweepInterval = 0 }, "BACKUP_SWEEP_INTERVAL"},
		{"negative initial delay", func(c *Config) { c.SweepInitialDelay = -1 }, "BACKUP_SWEEP_INITIAL_DELAY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}
