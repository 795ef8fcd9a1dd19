// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/archivist/internal/logging"
)

// Shutdowner is a component that releases its resources on Shutdown.
// *backup.Manager satisfies it.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ShutdownService ties a component's Shutdown to the supervisor tree: it
// idles until its context is canceled, then runs Shutdown with its own
// deadline. Shutdown runs at most once; a restart after it has run returns
// suture.ErrDoNotRestart.
type ShutdownService struct {
	target  Shutdowner
	timeout time.Duration
	name    string
	done    bool
}

// NewShutdownService wraps target. A non-positive timeout means 30s.
func NewShutdownService(name string, target Shutdowner, timeout time.Duration) *ShutdownService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownService{target: target, timeout: timeout, name: name}
}

// Serve implements suture.Service. It is only ever run by one goroutine at
// a time.
func (s *ShutdownService) Serve(ctx context.Context) error {
	if s.done {
		return suture.ErrDoNotRestart
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.done = true
	if err := s.target.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Shutdown did not complete cleanly")
		return fmt.Errorf("%s shutdown: %w", s.name, err)
	}
	logging.Info().Str("service", s.name).Msg("Shutdown complete")
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *ShutdownService) String() string {
	return s.name
}
