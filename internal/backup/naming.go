// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const artifactTimeLayout = "2006-01-02T15-04-05"

var (
	containerPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,62}$`)
	artifactPattern  = regexp.MustCompile(`^backup-(.+)-(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2})(?:-(\d+))?\.zip$`)
)

// ValidateContainer checks that name is a usable container name. Names are
// embedded in file names, so separators and leading dots are rejected.
func ValidateContainer(name string) error {
	if name == "" {
		return fmt.Errorf("%w: container name is required", ErrNotValid)
	}
	if !containerPattern.MatchString(name) {
		return fmt.Errorf("%w: invalid container name %q", ErrNotValid, name)
	}
	return nil
}

// ArtifactName builds the file name for a backup of container taken at t:
// backup-<container>-<YYYY-MM-DDTHH-MM-SS>.zip in UTC. A seq above 1 is
// appended to disambiguate jobs created within the same second.
func ArtifactName(container string, t time.Time, seq int) string {
	stamp := t.UTC().Format(artifactTimeLayout)
	if seq > 1 {
		return fmt.Sprintf("backup-%s-%s-%d.zip", container, stamp, seq)
	}
	return fmt.Sprintf("backup-%s-%s.zip", container, stamp)
}

// ArtifactInfo is what can be recovered from an artifact file name.
type ArtifactInfo struct {
	Container string
	Timestamp time.Time
	Seq       int
}

// ParseArtifactName reports whether name follows the artifact naming
// convention and, if so, what it encodes.
func ParseArtifactName(name string) (ArtifactInfo, bool) {
	m := artifactPattern.FindStringSubmatch(name)
	if m == nil {
		return ArtifactInfo{}, false
	}
	ts, err := time.Parse(artifactTimeLayout, m[2])
	if err != nil {
		return ArtifactInfo{}, false
	}
	info := ArtifactInfo{Container: m[1], Timestamp: ts, Seq: 1}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return ArtifactInfo{}, false
		}
		info.Seq = n
	}
	return info, true
}

// IsArtifactName reports whether name follows the artifact naming convention.
func IsArtifactName(name string) bool {
	_, ok := ParseArtifactName(name)
	return ok
}
