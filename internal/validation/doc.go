// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package validation wraps go-playground/validator v10 for request payloads.

Handlers decode a request into a models type and call ValidateStruct. A nil
result means the payload is valid; otherwise ToAPIError produces the
VALIDATION_ERROR code, a readable message and per-field details:

	var req models.CreateBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { ... }
	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
	    return
	}

# Custom Tags

  - container: a backup container name, checked with backup.ValidateContainer

The validator is built once and shared; validator.Validate is safe for
concurrent use and caches struct metadata across calls.
*/
package validation
