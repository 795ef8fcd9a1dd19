// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/config"
	"github.com/tomtom215/archivist/internal/history"
	"github.com/tomtom215/archivist/internal/logging"
	ws "github.com/tomtom215/archivist/internal/websocket"
)

// BackupService is the backup lifecycle as seen by the HTTP layer.
// *backup.Manager implements it.
type BackupService interface {
	Create(container, token string) (*backup.CreateResult, error)
	Status(id, token, container string) (backup.Snapshot, error)
	List(container string) ([]backup.Snapshot, error)
	Watch(id, token, container string) (backup.Snapshot, <-chan backup.Job, func(), error)
	Snapshot(job backup.Job) backup.Snapshot
	Abort(id, token, container string) error
	OpenDownload(id, token, container string) (*backup.Download, error)
	SystemStatus() backup.SystemStatus
}

// RestoreService stages uploads and runs restores. *backup.Restorer
// implements it.
type RestoreService interface {
	SaveUpload(src io.Reader, originalName string) (string, int64, error)
	Discard(path string)
	Restore(ctx context.Context, req backup.RestoreRequest) (*backup.RestoreResult, error)
	SystemStatus(status *backup.SystemStatus)
}

// HistoryReader lists recent restore outcomes. *history.Store implements it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	backups   BackupService
	restores  RestoreService
	history   HistoryReader // nil when HISTORY_ENABLED=false
	hub       *ws.Hub
	config    *config.Config
	access    *logging.AccessLogger
	version   string
	startTime time.Time

	// maxUploadBytes bounds the restore request body.
	maxUploadBytes int64
}

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	Backups  BackupService
	Restores RestoreService
	History  HistoryReader
	Hub      *ws.Hub
	Config   *config.Config
	Version  string
}

// NewHandler creates the HTTP handler set.
func NewHandler(opts HandlerOptions) *Handler {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	hub := opts.Hub
	if hub == nil {
		hub = ws.NewHub()
	}
	maxUpload := cfg.Restore.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = backup.DefaultMaxUploadBytes
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	return &Handler{
		backups:        opts.Backups,
		restores:       opts.Restores,
		history:        opts.History,
		hub:            hub,
		config:         cfg,
		access:         logging.NewAccessLogger(),
		version:        version,
		startTime:      time.Now(),
		maxUploadBytes: maxUpload,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Requests
// without an Origin header come from non-browser clients, which already
// have to present the job's capability token.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", logging.SanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
