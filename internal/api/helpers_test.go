// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/juju/clock"

	"github.com/tomtom215/archivist/internal/auth"
	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/config"
	"github.com/tomtom215/archivist/internal/history"
	"github.com/tomtom215/archivist/internal/models"
	"github.com/tomtom215/archivist/internal/process"
)

const testToken = "capability-token-123"

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

func writeProgram(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write program: %v", err)
	}
	return path
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// testConfig returns an application config suitable for handler tests.
func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Environment: "development"},
		Security: config.SecurityConfig{AuthMode: "none", CORSOrigins: []string{"*"}, RateLimitDisabled: true},
		Restore:  config.RestoreConfig{MaxUploadBytes: 1 << 20},
	}
}

// testServer is a full router backed by real components and shell programs.
type testServer struct {
	handler  http.Handler
	manager  *backup.Manager
	restorer *backup.Restorer
	history  *history.Store
	dir      string
}

type serverOptions struct {
	exportScript string
	importScript string
	maxUpload    int64
	security     *config.SecurityConfig
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	requireShell(t)

	dir := t.TempDir()
	if opts.exportScript == "" {
		opts.exportScript = `head -c 1024 /dev/zero > "$2"`
	}
	if opts.importScript == "" {
		opts.importScript = `echo "restoring $1 into $2 $3"`
	}
	if opts.maxUpload == 0 {
		opts.maxUpload = 1 << 20
	}

	cfg := testConfig()
	if opts.security != nil {
		cfg.Security = *opts.security
	}
	cfg.Restore.MaxUploadBytes = opts.maxUpload

	sup := process.NewSupervisor(process.Options{StopGrace: time.Second})

	bc := backup.DefaultConfig()
	bc.Dir = filepath.Join(dir, "backups")
	bc.Export = process.Program{Candidates: []string{writeProgram(t, dir, "export.sh", opts.exportScript)}}
	manager, err := backup.NewManager(bc, nil, sup, clock.WallClock)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	rc := backup.DefaultRestoreConfig()
	rc.TempDir = filepath.Join(dir, "uploads")
	rc.Import = process.Program{Candidates: []string{writeProgram(t, dir, "import.sh", opts.importScript)}}
	rc.MaxUploadBytes = opts.maxUpload
	restorer, err := backup.NewRestorer(rc, sup, clock.WallClock)
	if err != nil {
		t.Fatalf("NewRestorer failed: %v", err)
	}

	store, err := history.Open(history.Options{InMemory: true, MaxEntries: 50})
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	restorer.OnComplete(store.Observer())

	authMW, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		t.Fatalf("NewMiddleware failed: %v", err)
	}

	h := NewHandler(HandlerOptions{
		Backups:  manager,
		Restores: restorer,
		History:  store,
		Config:   cfg,
		Version:  "test",
	})
	router := NewRouter(h, authMW, NewChiMiddlewareFromConfig(cfg.Security))

	return &testServer{
		handler:  router.SetupChi(),
		manager:  manager,
		restorer: restorer,
		history:  store,
		dir:      dir,
	}
}

func (s *testServer) do(t *testing.T, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil && method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func newJSONRequest(method, target, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// createJob creates a job and waits for it to reach want.
func (s *testServer) createJob(t *testing.T, container string, want backup.Status) backup.CreateResult {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/backups", testToken, jsonBody(t, map[string]string{"container": container}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created backup.CreateResult
	decodeData(t, rec, &created)

	waitFor(t, string(want), func() bool {
		snap, err := s.manager.Status(created.ID, testToken, container)
		return err == nil && snap.Status == want
	})
	return created
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %s: %v", rec.Body.String(), err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

// decodeError returns the envelope's error.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope %s: %v", rec.Body.String(), err)
	}
	if resp.Status != "error" || resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return *resp.Error
}

// multipartField is one part of a restore upload.
type multipartField struct {
	name     string
	filename string
	content  string
}

func multipartBody(t *testing.T, fields ...multipartField) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		var (
			w   io.Writer
			err error
		)
		if f.filename != "" {
			w, err = mw.CreateFormFile(f.name, f.filename)
		} else {
			w, err = mw.CreateFormField(f.name)
		}
		if err != nil {
			t.Fatalf("multipart: %v", err)
		}
		if _, err := io.WriteString(w, f.content); err != nil {
			t.Fatalf("multipart write: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (s *testServer) restore(t *testing.T, fields ...multipartField) (*httptest.ResponseRecorder, models.RestoreResponse) {
	t.Helper()
	body, contentType := multipartBody(t, fields...)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp models.RestoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode restore response %s: %v", rec.Body.String(), err)
	}
	return rec, resp
}

// mockBackupService returns canned errors for mapping tests.
type mockBackupService struct {
	err    error
	status backup.SystemStatus
}

func (m *mockBackupService) Create(container, token string) (*backup.CreateResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &backup.CreateResult{ID: "job-1", Status: backup.StatusInitiating, Filename: "backup-" + container + ".zip", ExpiresInSeconds: 300}, nil
}

func (m *mockBackupService) Status(id, token, container string) (backup.Snapshot, error) {
	return backup.Snapshot{ID: id}, m.err
}

func (m *mockBackupService) List(container string) ([]backup.Snapshot, error) {
	return nil, m.err
}

func (m *mockBackupService) Watch(id, token, container string) (backup.Snapshot, <-chan backup.Job, func(), error) {
	return backup.Snapshot{}, nil, func() {}, m.err
}

func (m *mockBackupService) Snapshot(job backup.Job) backup.Snapshot {
	return backup.Snapshot{ID: job.ID, Status: job.Status}
}

func (m *mockBackupService) Abort(id, token, container string) error {
	return m.err
}

func (m *mockBackupService) OpenDownload(id, token, container string) (*backup.Download, error) {
	return nil, m.err
}

func (m *mockBackupService) SystemStatus() backup.SystemStatus {
	return m.status
}

// newMockServer routes requests to handlers backed by svc.
func newMockServer(t *testing.T, svc BackupService, hist HistoryReader) http.Handler {
	t.Helper()
	cfg := testConfig()
	authMW, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		t.Fatalf("NewMiddleware failed: %v", err)
	}
	h := NewHandler(HandlerOptions{Backups: svc, History: hist, Config: cfg})
	return NewRouter(h, authMW, NewChiMiddlewareFromConfig(cfg.Security)).SetupChi()
}
