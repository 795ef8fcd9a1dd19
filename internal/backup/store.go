// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Store is the directory holding backup artifacts.
type Store struct {
	dir string
}

// ArtifactFile describes a file in the store that follows the artifact
// naming convention.
type ArtifactFile struct {
	Name      string
	Path      string
	Container string
	Size      int64
	ModTime   time.Time
}

// NewStore creates the artifact directory if needed and returns a Store for it.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of an artifact name inside the store.
// Any directory components in name are discarded.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Stat returns the file info of a regular file at path.
func (s *Store) Stat(path string) (fs.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	return info, true
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(path string) bool {
	_, ok := s.Stat(path)
	return ok
}

// Remove deletes the file at path if it exists. It reports whether a file
// was removed; a file that is already gone is not an error.
func (s *Store) Remove(path string) (bool, error) {
	return removeIfExists(path)
}

func removeIfExists(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Artifacts lists regular files whose names follow the artifact naming
// convention. Other files in the directory are ignored.
func (s *Store) Artifacts() ([]ArtifactFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	files := make([]ArtifactFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		parsed, ok := ParseArtifactName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, ArtifactFile{
			Name:      entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			Container: parsed.Container,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	return files, nil
}

// Writable verifies that new files can be created in the store.
func (s *Store) Writable() error {
	f, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("artifact directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
