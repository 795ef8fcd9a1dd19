// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/tomtom215/archivist/internal/process"
)

// Error classes shared with the HTTP layer.
var (
	// ErrUnauthorized means no capability token was presented.
	ErrUnauthorized = errors.Unauthorized

	// ErrForbidden means the token or container does not match the job.
	ErrForbidden = errors.Forbidden

	// ErrNotFound means the job or its artifact does not exist.
	ErrNotFound = errors.NotFound

	// ErrNotValid means request input failed validation.
	ErrNotValid = errors.NotValid
)

const (
	// ErrInvalidState means the job's status does not permit the operation.
	ErrInvalidState = errors.ConstError("invalid job state")

	// ErrProcessFailure means an external program failed to start or exited nonzero.
	ErrProcessFailure = errors.ConstError("process failure")

	// ErrArtifactMissing means the export exited cleanly without writing its
	// artifact. It is always reported together with ErrProcessFailure.
	ErrArtifactMissing = errors.ConstError("artifact not produced")

	// ErrUploadTooLarge means an uploaded archive exceeded the size limit.
	// It is reported together with ErrNotValid.
	ErrUploadTooLarge = errors.ConstError("upload too large")

	// ErrUploadCleanup means a temporary upload could not be deleted.
	// It is logged, never returned to callers.
	ErrUploadCleanup = errors.ConstError("upload cleanup failed")
)

// ErrProgramNotFound means the export or import program could not be located.
var ErrProgramNotFound = process.ErrProgramNotFound

func exitError(program string, code int) error {
	return fmt.Errorf("%w: %s process exited with code %d", ErrProcessFailure, program, code)
}

func startError(program string, err error) error {
	return fmt.Errorf("%w: failed to start %s process: %v", ErrProcessFailure, program, err)
}

func artifactMissingError(name string) error {
	return fmt.Errorf("%w: %w: %s", ErrProcessFailure, ErrArtifactMissing, name)
}
