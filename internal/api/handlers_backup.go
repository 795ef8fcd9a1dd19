// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/archivist/internal/auth"
	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/models"
	ws "github.com/tomtom215/archivist/internal/websocket"
)

// maxCreateBodyBytes bounds the JSON body of a create request.
const maxCreateBodyBytes = 4 << 10

// ListBackupsResponse is the data of GET /api/v1/backups.
type ListBackupsResponse struct {
	Container string            `json:"container"`
	Backups   []backup.Snapshot `json:"backups"`
	Count     int               `json:"count"`
}

// backupRequest is the identity a caller presents for an existing job.
type backupRequest struct {
	id        string
	token     string
	container string
}

func readBackupRequest(r *http.Request) backupRequest {
	return backupRequest{
		id:        chi.URLParam(r, "id"),
		token:     auth.TokenFromContext(r.Context()),
		container: r.URL.Query().Get("container"),
	}
}

// CreateBackup starts an export job for a container.
// POST /api/v1/backups
//
// @Summary Create a backup job
// @Description Launches the export program for a container and returns immediately.
// @Tags Backups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateBackupRequest true "Container to back up"
// @Success 202 {object} models.APIResponse{data=backup.CreateResult} "Job accepted"
// @Failure 400 {object} models.APIResponse "Invalid container"
// @Failure 401 {object} models.APIResponse "Missing capability token"
// @Failure 503 {object} models.APIResponse "Export program unavailable"
// @Router /backups [post]
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBackupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCreateBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON: {\"container\": \"<name>\"}", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr)
		return
	}

	token := auth.TokenFromContext(r.Context())
	result, err := h.backups.Create(req.Container, token)
	if err != nil {
		if errors.Is(err, backup.ErrUnauthorized) {
			h.access.LogAccessDenied("", req.Container, token, clientIP(r), "missing token")
		}
		respondBackupError(w, err)
		return
	}

	ctx := logging.ContextWithJob(r.Context(), result.ID, req.Container)
	logging.Ctx(ctx).Info().Str("artifact", result.Filename).Msg("Backup requested")

	w.Header().Set("Location", "/api/v1/backups/"+result.ID)
	respondSuccess(w, r, http.StatusAccepted, result)
}

// ListBackups lists live jobs and recent untracked artifacts for a container.
// GET /api/v1/backups?container=
//
// @Summary List backups for a container
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Param container query string true "Container name"
// @Success 200 {object} models.APIResponse{data=ListBackupsResponse}
// @Failure 400 {object} models.APIResponse "Missing or invalid container"
// @Router /backups [get]
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	container := r.URL.Query().Get("container")
	snapshots, err := h.backups.List(container)
	if err != nil {
		respondBackupError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, ListBackupsResponse{
		Container: container,
		Backups:   snapshots,
		Count:     len(snapshots),
	})
}

// GetBackup returns a job status snapshot.
// GET /api/v1/backups/{id}
//
// @Summary Get backup job status
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param container query string false "Container the job must belong to"
// @Success 200 {object} models.APIResponse{data=backup.Snapshot}
// @Failure 401 {object} models.APIResponse "Missing capability token"
// @Failure 403 {object} models.APIResponse "Token or container mismatch"
// @Failure 404 {object} models.APIResponse "Unknown job"
// @Router /backups/{id} [get]
func (h *Handler) GetBackup(w http.ResponseWriter, r *http.Request) {
	req := readBackupRequest(r)
	snap, err := h.backups.Status(req.id, req.token, req.container)
	if err != nil {
		h.logDenied(r, req, err)
		respondBackupError(w, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, snap)
}

// DownloadBackup streams a job's artifact. The job is reclaimed when the
// stream ends, whether or not the client received every byte.
// GET /api/v1/backups/{id}/download
//
// @Summary Download a backup artifact
// @Description Streams the zip once; the artifact is deleted afterwards.
// @Tags Backups
// @Produce application/zip
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param container query string false "Container the job must belong to"
// @Param token query string false "Capability token for browser downloads"
// @Success 200 {file} file "Backup archive"
// @Failure 401 {object} models.APIResponse "Missing capability token"
// @Failure 403 {object} models.APIResponse "Token or container mismatch"
// @Failure 404 {object} models.APIResponse "Unknown job or artifact"
// @Failure 409 {object} models.APIResponse "Job not downloadable"
// @Router /backups/{id}/download [get]
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	req := readBackupRequest(r)
	dl, err := h.backups.OpenDownload(req.id, req.token, req.container)
	if err != nil {
		h.logDenied(r, req, err)
		respondBackupError(w, err)
		return
	}
	defer dl.Close()

	setDownloadHeaders(w, dl)
	w.WriteHeader(http.StatusOK)

	n, copyErr := io.Copy(w, dl)
	if copyErr == nil && r.Context().Err() == nil {
		dl.MarkComplete()
	} else {
		logging.Ctx(r.Context()).Warn().
			Err(copyErr).
			Str("job_id", req.id).
			Int64("bytes_sent", n).
			Msg("Backup download interrupted")
	}

	job := dl.Job()
	h.access.LogDownload(job.ID, job.Container, clientIP(r), copyErr == nil, n)
}

// setDownloadHeaders sets HTTP headers for an artifact download
func setDownloadHeaders(w http.ResponseWriter, dl *backup.Download) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Name()))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Accel-Buffering", "no")
	if size := dl.Size(); size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
}

// DeleteBackup aborts a job and deletes its artifact.
// DELETE /api/v1/backups/{id}
//
// @Summary Abort a backup job
// @Tags Backups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse "Missing capability token"
// @Failure 403 {object} models.APIResponse "Token mismatch"
// @Failure 404 {object} models.APIResponse "Unknown job"
// @Router /backups/{id} [delete]
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	req := readBackupRequest(r)
	if err := h.backups.Abort(req.id, req.token, req.container); err != nil {
		h.logDenied(r, req, err)
		respondBackupError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("job_id", req.id).Msg("Backup aborted by owner")
	respondSuccess(w, r, http.StatusOK, map[string]string{
		"id":      req.id,
		"message": "Backup aborted and artifact deleted",
	})
}

// WatchBackup upgrades to a WebSocket that streams job snapshots until the
// job reaches a terminal status or is reclaimed.
// GET /api/v1/backups/{id}/watch
//
// @Summary Watch a backup job
// @Description WebSocket stream of job snapshots.
// @Tags Backups
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 101 "Switching protocols"
// @Failure 401 {object} models.APIResponse "Missing capability token"
// @Router /backups/{id}/watch [get]
func (h *Handler) WatchBackup(w http.ResponseWriter, r *http.Request) {
	req := readBackupRequest(r)
	initial, updates, stop, err := h.backups.Watch(req.id, req.token, req.container)
	if err != nil {
		h.logDenied(r, req, err)
		respondBackupError(w, err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		stop()
		logging.Ctx(r.Context()).Debug().Err(err).Str("job_id", req.id).Msg("Watch upgrade failed")
		return
	}

	h.hub.Watch(conn, ws.Feed{
		Initial: initial,
		Updates: updates,
		Render:  h.backups.Snapshot,
		Stop:    stop,
	})
}

// BackupSystemStatus reports whether exports and restores can run.
// GET /api/v1/backups/system
//
// @Summary Backup system status
// @Tags Backups
// @Produce json
// @Success 200 {object} models.APIResponse{data=backup.SystemStatus}
// @Router /backups/system [get]
func (h *Handler) BackupSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := h.backups.SystemStatus()
	if h.restores != nil {
		h.restores.SystemStatus(&status)
	}
	respondSuccess(w, r, http.StatusOK, status)
}

// logDenied records token and ownership failures in the access log.
func (h *Handler) logDenied(r *http.Request, req backupRequest, err error) {
	var reason string
	switch {
	case errors.Is(err, backup.ErrUnauthorized):
		reason = "missing token"
	case errors.Is(err, backup.ErrForbidden):
		reason = "token or container mismatch"
	default:
		return
	}
	h.access.LogAccessDenied(req.id, req.container, req.token, clientIP(r), reason)
}
