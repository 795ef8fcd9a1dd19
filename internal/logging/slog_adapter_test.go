// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Handle(t *testing.T) {
	withGlobalLevel(t, zerolog.TraceLevel)

	tests := []struct {
		name      string
		level     slog.Level
		wantLevel string
	}{
		{"debug", slog.LevelDebug, "debug"},
		{"info", slog.LevelInfo, "info"},
		{"warn", slog.LevelWarn, "warn"},
		{"error", slog.LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf).Level(zerolog.TraceLevel)))

			logger.Log(t.Context(), tt.level, "service event", "service", "retention-sweeper")

			output := buf.String()
			if !strings.Contains(output, `"level":"`+tt.wantLevel+`"`) {
				t.Errorf("expected level %s, got: %s", tt.wantLevel, output)
			}
			if !strings.Contains(output, `"service":"retention-sweeper"`) {
				t.Errorf("expected service attr, got: %s", output)
			}
		})
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := NewSlogHandlerWithLogger(zerolog.New(nil).Level(zerolog.WarnLevel))

	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled for a warn-level logger")
	}
	if !h.Enabled(t.Context(), slog.LevelError) {
		t.Error("error should be enabled for a warn-level logger")
	}
}

func TestSlogHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger := base.With("supervisor", "archivist").WithGroup("svc").WithGroup("state")
	logger.Info("restart",
		"attempt", 3,
		"backoff", 2*time.Second,
		"healthy", false,
		"err", errors.New("boom"),
		slog.Group("detail", "path", "/backups"),
	)

	output := buf.String()
	for _, want := range []string{
		`"supervisor":"archivist"`,
		`"svc.state.attempt":3`,
		`"svc.state.healthy":false`,
		`"svc.state.err":"boom"`,
		`"svc.state.detail.path":"/backups"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestSlogHandler_EmptyGroupIsNoop(t *testing.T) {
	h := NewSlogHandler()
	if h.WithGroup("") != h {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}

func TestNewSlogLogger(t *testing.T) {
	buf := captureGlobal(t)

	NewSlogLogger("supervisor").Warn("service terminated", "service", "http-server")

	output := buf.String()
	if !strings.Contains(output, `"component":"supervisor"`) || !strings.Contains(output, `"service":"http-server"`) {
		t.Errorf("unexpected output: %s", output)
	}
}
