// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func contextWithRoute(req *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
}

func serveRequestID(t *testing.T, incoming string) (header, fromContext string) {
	t.Helper()

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec.Header().Get(RequestIDHeader), fromContext
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	header, fromContext := serveRequestID(t, "")

	if header == "" {
		t.Fatal("Expected X-Request-ID header in response")
	}
	if _, err := uuid.Parse(header); err != nil {
		t.Errorf("Response X-Request-ID is not a valid UUID: %v", err)
	}
	if fromContext != header {
		t.Errorf("Context ID (%s) doesn't match response header ID (%s)", fromContext, header)
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	header, fromContext := serveRequestID(t, "upstream-proxy-id-42")

	if header != "upstream-proxy-id-42" {
		t.Errorf("header = %q, want upstream ID", header)
	}
	if fromContext != "upstream-proxy-id-42" {
		t.Errorf("context ID = %q, want upstream ID", fromContext)
	}
}

func TestRequestID_RejectsUnsafeIDs(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"contains space", "bad id"},
		{"contains newline", "bad\nid"},
		{"too long", strings.Repeat("a", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, _ := serveRequestID(t, tt.incoming)
			if header == tt.incoming {
				t.Errorf("unsafe request ID %q was echoed back", tt.incoming)
			}
			if _, err := uuid.Parse(header); err != nil {
				t.Errorf("replacement ID is not a UUID: %v", err)
			}
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		header, _ := serveRequestID(t, "")
		if seen[header] {
			t.Fatalf("duplicate request ID %s", header)
		}
		seen[header] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
