// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "metadata": {"timestamp": "2026-01-02T12:00:00Z"},
//	  "error": {"code": "FORBIDDEN", "message": "token does not match job"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - UNAUTHORIZED: Missing or invalid capability token
//   - FORBIDDEN: Token or container does not match the job
//   - NOT_FOUND: Unknown or already reclaimed job
//   - INVALID_STATE: Job is not in a state that allows the operation
//   - EXPORT_UNAVAILABLE / IMPORT_UNAVAILABLE: External program not found
//   - RATE_LIMIT_EXCEEDED: Too many requests from one client
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Success wraps data in a success envelope stamped with the current time.
func Success(data interface{}) *APIResponse {
	return &APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	}
}

// Failure builds an error envelope.
func Failure(code, message string) *APIResponse {
	return &APIResponse{
		Status:   "error",
		Metadata: Metadata{Timestamp: time.Now().UTC()},
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}
}

// CreateBackupRequest is the body of POST /api/v1/backups.
//
//	{"container": "photos"}
type CreateBackupRequest struct {
	Container string `json:"container" validate:"required,container"`
}

// RestoreResponse is returned by POST /api/v1/restore. It is rendered
// without the envelope so the frontend can read success and output directly.
type RestoreResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Output     string `json:"output"`
	ExitCode   int    `json:"exit_code"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  float64           `json:"uptime_seconds"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// TokenResponse is printed by the server binary's token issuing mode.
type TokenResponse struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}
