// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	uploadIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	uploadIDLength   = 10
	maxUploadNameLen = 100
)

// SaveUpload copies an uploaded archive into the temp directory under a
// unique name and returns its path. At most MaxUploadBytes are accepted.
// A partial file is removed on failure.
func (r *Restorer) SaveUpload(src io.Reader, originalName string) (string, int64, error) {
	id, err := gonanoid.Generate(uploadIDAlphabet, uploadIDLength)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate upload name: %w", err)
	}
	name := strconv.FormatInt(r.clock.Now().UnixMilli(), 10) + "-" + id + "-" + SanitizeUploadName(originalName)
	path := filepath.Join(r.cfg.TempDir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}

	n, copyErr := io.Copy(dst, io.LimitReader(src, r.cfg.MaxUploadBytes+1))
	closeErr := dst.Close()
	switch {
	case copyErr != nil:
		r.cleanupUpload(path)
		return "", 0, fmt.Errorf("failed to store upload: %w", copyErr)
	case closeErr != nil:
		r.cleanupUpload(path)
		return "", 0, fmt.Errorf("failed to store upload: %w", closeErr)
	case n > r.cfg.MaxUploadBytes:
		r.cleanupUpload(path)
		return "", 0, fmt.Errorf("%w: %w: upload exceeds %d bytes", ErrNotValid, ErrUploadTooLarge, r.cfg.MaxUploadBytes)
	}
	return path, n, nil
}

// Discard removes an upload that will not be passed to Restore.
func (r *Restorer) Discard(path string) {
	r.cleanupUpload(path)
}

// SanitizeUploadName reduces a client-supplied file name to a safe base
// name of letters, digits, dots, dashes and underscores.
func SanitizeUploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxUploadNameLen {
		clean = clean[len(clean)-maxUploadNameLen:]
	}
	if clean == "" {
		return "upload.zip"
	}
	return clean
}
