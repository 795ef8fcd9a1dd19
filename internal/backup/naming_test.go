// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestArtifactName(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	tests := []struct {
		name      string
		container string
		at        time.Time
		seq       int
		expected  string
	}{
		{"first job", "docs", ts, 1, "backup-docs-2026-03-14T09-26-53.zip"},
		{"zero seq is first", "docs", ts, 0, "backup-docs-2026-03-14T09-26-53.zip"},
		{"same second", "docs", ts, 2, "backup-docs-2026-03-14T09-26-53-2.zip"},
		{"converted to UTC", "media", ts.In(time.FixedZone("EST", -5*3600)), 1, "backup-media-2026-03-14T09-26-53.zip"},
		{"dashed container", "user-data-2", ts, 1, "backup-user-data-2-2026-03-14T09-26-53.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArtifactName(tt.container, tt.at, tt.seq); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseArtifactName(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name      string
		file      string
		ok        bool
		container string
		seq       int
	}{
		{"plain", "backup-docs-2026-03-14T09-26-53.zip", true, "docs", 1},
		{"with seq", "backup-docs-2026-03-14T09-26-53-3.zip", true, "docs", 3},
		{"dashed container", "backup-user-data-2-2026-03-14T09-26-53.zip", true, "user-data-2", 1},
		{"dotted container", "backup-a.b-2026-03-14T09-26-53.zip", true, "a.b", 1},
		{"wrong prefix", "export-docs-2026-03-14T09-26-53.zip", false, "", 0},
		{"wrong extension", "backup-docs-2026-03-14T09-26-53.tar", false, "", 0},
		{"missing timestamp", "backup-docs.zip", false, "", 0},
		{"upload temp file", "1700000000000-abc-backup.zip", false, "", 0},
		{"impossible date", "backup-docs-2026-13-40T09-26-53.zip", false, "", 0},
		{"empty", "", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := ParseArtifactName(tt.file)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if IsArtifactName(tt.file) != tt.ok {
				t.Errorf("IsArtifactName disagrees with ParseArtifactName")
			}
			if !ok {
				return
			}
			if info.Container != tt.container {
				t.Errorf("expected container %q, got %q", tt.container, info.Container)
			}
			if info.Seq != tt.seq {
				t.Errorf("expected seq %d, got %d", tt.seq, info.Seq)
			}
			if !info.Timestamp.Equal(ts) {
				t.Errorf("expected timestamp %v, got %v", ts, info.Timestamp)
			}
		})
	}
}

func TestArtifactNameRoundTrip(t *testing.T) {
	ts := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	for _, container := range []string{"a", "docs", "x-1", "Media_2024", "a.b.c"} {
		name := ArtifactName(container, ts, 1)
		info, ok := ParseArtifactName(name)
		if !ok {
			t.Fatalf("expected %q to parse", name)
		}
		if info.Container != container {
			t.Errorf("expected container %q, got %q", container, info.Container)
		}
	}
}

func TestValidateContainer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "docs", true},
		{"digits", "bucket2024", true},
		{"punctuation", "my.bucket_name-1", true},
		{"max length", strings.Repeat("a", 63), true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 64), false},
		{"leading dot", ".hidden", false},
		{"leading dash", "-docs", false},
		{"slash", "docs/../etc", false},
		{"space", "my docs", false},
		{"unicode", "dócs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContainer(tt.input)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrNotValid) {
					t.Errorf("expected ErrNotValid, got %v", err)
				}
			}
		})
	}
}

func TestStatusCanTransition(t *testing.T) {
	all := []Status{StatusInitiating, StatusRunning, StatusCompleted, StatusError, StatusDownloaded}
	allowed := map[Status][]Status{
		StatusInitiating: {StatusRunning, StatusCompleted, StatusError},
		StatusRunning:    {StatusCompleted, StatusError, StatusDownloaded},
		StatusCompleted:  {StatusDownloaded},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}
