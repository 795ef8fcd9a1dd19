// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/history"
	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/models"
)

// Multipart field names accepted by the restore endpoint. The first name of
// each pair is the one the web frontend sends.
var (
	restoreFileFields      = []string{"backupFile", "backup"}
	restoreContainerFields = []string{"targetBucket", "container"}
)

const (
	restorePreserveField = "preserveIds"

	// multipartOverhead allows for boundaries and the small text fields on
	// top of the archive itself.
	multipartOverhead = 1 << 20

	// maxFieldBytes bounds a single text field.
	maxFieldBytes = 1 << 10

	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// restoreForm is the parsed multipart restore request.
type restoreForm struct {
	archivePath  string
	originalName string
	container    string
	preserveIDs  bool
}

// RestoreBackup uploads an archive and runs the import program against it.
// The response is not enveloped: {success, message, output, exit_code}.
// POST /api/v1/restore
//
// @Summary Restore a container from an archive
// @Tags Restore
// @Accept multipart/form-data
// @Produce json
// @Param backupFile formData file true "Backup archive"
// @Param targetBucket formData string true "Target container"
// @Param preserveIds formData boolean false "Keep original identifiers"
// @Success 200 {object} models.RestoreResponse
// @Failure 400 {object} models.RestoreResponse "Invalid form"
// @Failure 413 {object} models.RestoreResponse "Upload too large"
// @Failure 500 {object} models.RestoreResponse "Import failed"
// @Router /restore [post]
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	form, err := h.readRestoreForm(r)
	if err != nil {
		if form.archivePath != "" {
			h.restores.Discard(form.archivePath)
		}
		respondRestoreError(w, err)
		return
	}

	result, err := h.restores.Restore(r.Context(), backup.RestoreRequest{
		ArchivePath:  form.archivePath,
		OriginalName: form.originalName,
		Container:    form.container,
		PreserveIDs:  form.preserveIDs,
	})
	if err != nil {
		h.access.LogRestore(form.container, form.originalName, clientIP(r), false, err.Error())
		respondRestoreError(w, err)
		return
	}

	h.access.LogRestore(form.container, form.originalName, clientIP(r), result.Success, result.Message)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, models.RestoreResponse{
		Success:    result.Success,
		Message:    result.Message,
		Output:     result.Output,
		ExitCode:   result.ExitCode,
		Truncated:  result.Truncated,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// readRestoreForm streams the multipart body, saving the archive part
// straight to the upload directory. The returned form carries the archive
// path even on error so the caller can discard it.
func (h *Handler) readRestoreForm(r *http.Request) (restoreForm, error) {
	var form restoreForm

	reader, err := r.MultipartReader()
	if err != nil {
		return form, fmt.Errorf("%w: expected a multipart/form-data upload", backup.ErrNotValid)
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return form, uploadError(err)
		}

		name := part.FormName()
		switch {
		case contains(restoreFileFields, name):
			if form.archivePath != "" {
				_ = part.Close()
				return form, fmt.Errorf("%w: only one backup file may be uploaded", backup.ErrNotValid)
			}
			form.originalName = part.FileName()
			path, _, err := h.restores.SaveUpload(part, form.originalName)
			if err != nil {
				_ = part.Close()
				return form, uploadError(err)
			}
			form.archivePath = path

		case contains(restoreContainerFields, name):
			value, err := readField(part)
			if err != nil {
				return form, err
			}
			form.container = value

		case name == restorePreserveField:
			value, err := readField(part)
			if err != nil {
				return form, err
			}
			form.preserveIDs = parseBool(value)
		}
		_ = part.Close()
	}

	if form.archivePath == "" {
		return form, fmt.Errorf("%w: no backup file uploaded", backup.ErrNotValid)
	}
	if form.container == "" {
		return form, fmt.Errorf("%w: target container is required", backup.ErrNotValid)
	}
	return form, nil
}

// readField reads a small text part.
func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", uploadError(err)
	}
	if len(data) > maxFieldBytes {
		return "", fmt.Errorf("%w: field %s is too long", backup.ErrNotValid, part.FormName())
	}
	return strings.TrimSpace(string(data)), nil
}

// uploadError converts a body read failure into the backup error classes.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: %w: request body exceeds %d bytes", backup.ErrNotValid, backup.ErrUploadTooLarge, maxErr.Limit)
	}
	// multipart does not always preserve the MaxBytesError type.
	if strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %w: %v", backup.ErrNotValid, backup.ErrUploadTooLarge, err)
	}
	if errors.Is(err, backup.ErrNotValid) {
		return err
	}
	return fmt.Errorf("failed to read upload: %w", err)
}

// parseBool accepts the checkbox and string forms browsers send.
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true
	}
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// respondRestoreError renders a restore failure in the restore response shape.
func respondRestoreError(w http.ResponseWriter, err error) {
	status, code := classifyBackupError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error().Str("code", code).Err(err).Msg("Restore request failed")
		message = "Restore failed: internal error"
	}
	writeJSON(w, status, models.RestoreResponse{
		Success:  false,
		Message:  message,
		ExitCode: -1,
	})
}

// RestoreHistoryResponse is the data of GET /api/v1/restore/history.
type RestoreHistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// RestoreHistory lists recent restore outcomes, newest first.
// GET /api/v1/restore/history?limit=
//
// @Summary Recent restore outcomes
// @Tags Restore
// @Produce json
// @Param limit query int false "Maximum entries" default(20)
// @Success 200 {object} models.APIResponse{data=RestoreHistoryResponse}
// @Failure 400 {object} models.APIResponse "Limit out of range"
// @Failure 503 {object} models.APIResponse "History disabled"
// @Router /restore/history [get]
func (h *Handler) RestoreHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "Restore history is not enabled", nil)
		return
	}

	limit := getIntParam(r, "limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit), nil)
		return
	}

	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HISTORY_FAILED", "Failed to read restore history", err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	respondSuccess(w, r, http.StatusOK, RestoreHistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}
