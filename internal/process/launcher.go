// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package process

import "context"

// Execution is the consumer view of a running program. *Run implements it.
type Execution interface {
	Events() <-chan Event
	Stop()
}

// Launcher starts programs. *Supervisor implements it; tests substitute
// scripted executions.
type Launcher interface {
	Launch(ctx context.Context, c Command) Execution
}

// Launch implements Launcher.
func (s *Supervisor) Launch(ctx context.Context, c Command) Execution {
	return s.Start(ctx, c)
}

var _ Launcher = (*Supervisor)(nil)
