// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"short", "abc", "***"},
		{"exactly 12", "abcdefghijkl", "***"},
		{"long", "eyJhbGciOiJIUzI1NiJ9.payload.sig", "eyJh....sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.input); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"photos", "photos"},
		{"line1\nline2", `line1\x0aline2`},
		{"tab\there", `tab\x09here`},
		{"del\x7f", `del\x7f`},
	}

	for _, tt := range tests {
		if got := SanitizeLogValue(tt.input); got != tt.want {
			t.Errorf("SanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	if got := SanitizeError("invalid Bearer header"); got != "authentication error" {
		t.Errorf("expected masked error, got %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := SanitizeError(long); len(got) != 203 {
		t.Errorf("expected truncation to 200 chars plus ellipsis, got length %d", len(got))
	}
	if got := SanitizeError("export exited with code 1"); got != "export exited with code 1" {
		t.Errorf("expected unchanged error, got %q", got)
	}
}

func TestSanitizeValue(t *testing.T) {
	if got := SanitizeValue("token", "abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("expected masked token, got %q", got)
	}
	if got := SanitizeValue("filename", "backup.zip"); got != "backup.zip" {
		t.Errorf("expected unchanged value, got %q", got)
	}
}

func TestAccessLogger_LogAccessDenied(t *testing.T) {
	var buf bytes.Buffer
	l := NewAccessLoggerWithLogger(NewTestLogger(&buf))

	l.LogAccessDenied("job-1", "photos", "secret-token-value-123", "10.0.0.1", "token mismatch")

	output := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"component":"access"`,
		`"event":"access_denied"`,
		`"status":"failed"`,
		`"job_id":"job-1"`,
		`"token":"secr...-123"`,
		`"error":"token mismatch"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
	if strings.Contains(output, "secret-token-value-123") {
		t.Errorf("raw token leaked into log: %s", output)
	}
}

func TestAccessLogger_LogDownload(t *testing.T) {
	var buf bytes.Buffer
	l := NewAccessLoggerWithLogger(NewTestLogger(&buf))

	l.LogDownload("job-2", "photos", "10.0.0.2", true, 2048)

	output := buf.String()
	if !strings.Contains(output, `"level":"info"`) || !strings.Contains(output, `"bytes":"2048"`) {
		t.Errorf("unexpected download record: %s", output)
	}
	if strings.Contains(output, `"error"`) {
		t.Errorf("successful download should have no error: %s", output)
	}
}

func TestAccessLogger_LogRestore(t *testing.T) {
	var buf bytes.Buffer
	l := NewAccessLoggerWithLogger(NewTestLogger(&buf))

	l.LogRestore("photos", "dump.zip", "", false, "import exited with code 1")

	output := buf.String()
	if !strings.Contains(output, `"event":"restore"`) || !strings.Contains(output, `"status":"failed"`) {
		t.Errorf("unexpected restore record: %s", output)
	}
	if !strings.Contains(output, `"filename":"dump.zip"`) {
		t.Errorf("expected filename detail: %s", output)
	}
}
