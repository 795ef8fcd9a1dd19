// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/archivist/internal/models"
)

// Health check values
const (
	checkOK          = "ok"
	statusAlive      = "alive"
	statusReady      = "ready"
	statusNotReady   = "not_ready"
	checkArtifactDir = "artifact_store"
	checkExport      = "export_program"
	checkImport      = "import_program"
)

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
// GET /api/v1/health/live
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthResponse}
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, models.HealthResponse{
		Status:  statusAlive,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Ready means the artifact directory is writable and the export program
// resolves. The import program is reported but does not gate readiness,
// since backups can be served without it.
// GET /api/v1/health/ready
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthResponse}
// @Failure 503 {object} models.APIResponse{data=models.HealthResponse} "Not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.backups.SystemStatus()
	if h.restores != nil {
		h.restores.SystemStatus(&status)
	}

	checks := map[string]string{
		checkArtifactDir: checkValue(status.StoreWritable, status.StoreError),
		checkExport:      checkValue(status.ExportAvailable, status.ExportError),
	}
	if h.restores != nil {
		checks[checkImport] = checkValue(status.ImportAvailable, status.ImportError)
	}

	ready := status.StoreWritable && status.ExportAvailable
	code := http.StatusOK
	health := statusReady
	if !ready {
		code = http.StatusServiceUnavailable
		health = statusNotReady
	}

	respondSuccess(w, r, code, models.HealthResponse{
		Status:  health,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Checks:  checks,
	})
}

func checkValue(ok bool, errText string) string {
	if ok {
		return checkOK
	}
	if errText == "" {
		return "unavailable"
	}
	return errText
}
