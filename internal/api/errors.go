// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/archivist/internal/backup"
)

// errorMapping associates a backup error class with its HTTP rendering.
type errorMapping struct {
	target error
	status int
	code   string
}

// backupErrorMappings is checked in order; the first class err matches wins.
// ErrUploadTooLarge comes before ErrNotValid because it carries both.
var backupErrorMappings = []errorMapping{
	{backup.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{backup.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{backup.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{backup.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{backup.ErrUploadTooLarge, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"},
	{backup.ErrNotValid, http.StatusBadRequest, "VALIDATION_ERROR"},
	{backup.ErrProgramNotFound, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE"},
}

// classifyBackupError returns the status and code for err. Unclassified
// errors are internal.
func classifyBackupError(err error) (int, string) {
	for _, m := range backupErrorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// respondBackupError renders an error from the backup package. Client
// errors carry their message; internal errors are logged and reported
// generically.
func respondBackupError(w http.ResponseWriter, err error) {
	status, code := classifyBackupError(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, code, "Internal server error", err)
		return
	}
	respondError(w, status, code, err.Error(), nil)
}
