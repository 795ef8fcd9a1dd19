// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/logging"
)

const (
	// restoreKeyPrefix namespaces restore entries. Keys are
	// restore:<20-digit unix nanos>:<id> so byte order is time order.
	restoreKeyPrefix = "restore:"

	// DefaultMaxEntries is used when Options.MaxEntries is not positive.
	DefaultMaxEntries = 500
)

// Entry is one recorded restore run.
type Entry struct {
	ID          string    `json:"id"`
	Container   string    `json:"container"`
	Filename    string    `json:"filename,omitempty"`
	PreserveIDs bool      `json:"preserve_ids"`
	Success     bool      `json:"success"`
	ExitCode    int       `json:"exit_code"`
	Message     string    `json:"message"`
	OutputTail  string    `json:"output_tail,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// FromRestore converts a restore record into a history entry.
func FromRestore(rec backup.RestoreRecord) *Entry {
	return &Entry{
		Container:   rec.Container,
		Filename:    rec.Filename,
		PreserveIDs: rec.PreserveIDs,
		Success:     rec.Success,
		ExitCode:    rec.ExitCode,
		Message:     rec.Message,
		OutputTail:  rec.OutputTail,
		StartedAt:   rec.StartedAt,
		DurationMS:  rec.Duration.Milliseconds(),
	}
}

// Options configures a Store.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory only.
	InMemory bool

	// MaxEntries caps the number of stored entries.
	MaxEntries int
}

// Store is a BadgerDB-backed restore history.
type Store struct {
	db         *badger.DB
	maxEntries int

	// writeMu serializes record-and-prune so the cap is exact.
	writeMu sync.Mutex
}

// Open opens (or creates) the history database.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("history path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(badgerLogger{})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for history: %w", err)
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an entry, assigning an ID if it has none, and prunes the
// oldest entries beyond the cap.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e), data)
	}); err != nil {
		return fmt.Errorf("store history entry: %w", err)
	}

	return s.prune(ctx)
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	entries := make([]Entry, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(restoreKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		for it.Seek([]byte(restoreKeyPrefix + "\xff")); it.Valid() && len(entries) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	keys, err := s.keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Observer returns a restore observer that records every run. Write
// failures are logged.
func (s *Store) Observer() func(backup.RestoreRecord) {
	return func(rec backup.RestoreRecord) {
		if err := s.Record(context.Background(), FromRestore(rec)); err != nil {
			logging.Warn().Err(err).Str("container", rec.Container).Msg("Failed to record restore history")
		}
	}
}

// prune deletes the oldest entries beyond maxEntries. Caller holds writeMu.
func (s *Store) prune(ctx context.Context) error {
	keys, err := s.keys()
	if err != nil {
		return err
	}
	excess := len(keys) - s.maxEntries
	if excess <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys[:excess] {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	logging.Debug().Int("pruned", excess).Msg("Pruned restore history")
	return nil
}

// keys returns all entry keys, oldest first.
func (s *Store) keys() ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(restoreKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan history keys: %w", err)
	}
	return keys, nil
}

func entryKey(e *Entry) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", restoreKeyPrefix, e.StartedAt.UnixNano(), e.ID))
}
