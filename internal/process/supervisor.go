// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/archivist/internal/logging"
)

// EventKind identifies what a process Event reports.
type EventKind int

const (
	// EventStdout carries a chunk of standard output text.
	EventStdout EventKind = iota
	// EventStderr carries a chunk of standard error text.
	EventStderr
	// EventExit is the terminal event of a program that ran.
	EventExit
	// EventStartFailed is the terminal event of a program that could not be launched.
	EventStartFailed
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventExit:
		return "exit"
	case EventStartFailed:
		return "start_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether an event of this kind ends a Run.
func (k EventKind) Terminal() bool {
	return k == EventExit || k == EventStartFailed
}

// Event is a single observation of a supervised program.
type Event struct {
	Kind EventKind

	// Text is the output chunk for EventStdout and EventStderr.
	Text string

	// ExitCode is set for EventExit. It is -1 when the program was
	// terminated by a signal.
	ExitCode int

	// Err is the launch error for EventStartFailed, or the wait error for
	// an EventExit with a nonzero code.
	Err error
}

// Command describes a program invocation.
type Command struct {
	Path string
	Args []string
	Dir  string

	// Env entries are appended to the current process environment.
	Env []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Options configures a Supervisor.
type Options struct {
	// EventBuffer is the capacity of each Run's event channel.
	// Default: 64
	EventBuffer int

	// StopGrace is how long a stopped program has to exit after SIGTERM
	// before it is killed.
	// Default: 5s
	StopGrace time.Duration
}

// Supervisor launches external programs and reports their events.
// A Supervisor holds no per-run state and is safe for concurrent use.
type Supervisor struct {
	opts Options
}

// NewSupervisor creates a Supervisor, applying defaults for zero options.
func NewSupervisor(opts Options) *Supervisor {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 5 * time.Second
	}
	return &Supervisor{opts: opts}
}

// Run is a single supervised program invocation.
type Run struct {
	cmd    Command
	pid    int
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
}

// Start launches the command and returns immediately. Launch failures are
// reported as an EventStartFailed on the returned Run, never as a return
// value, so callers have one place to observe the outcome.
//
// Canceling ctx stops the program the same way Run.Stop does.
func (s *Supervisor) Start(ctx context.Context, c Command) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		cmd:    c,
		events: make(chan Event, s.opts.EventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	cmd := exec.CommandContext(runCtx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdout = &streamWriter{kind: EventStdout, out: r.events}
	cmd.Stderr = &streamWriter{kind: EventStderr, out: r.events}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = s.opts.StopGrace

	if err := cmd.Start(); err != nil {
		cancel()
		logging.Warn().Err(err).Str("program", c.Path).Msg("Process failed to start")
		r.events <- Event{Kind: EventStartFailed, ExitCode: -1, Err: fmt.Errorf("start %s: %w", c.Path, err)}
		close(r.events)
		close(r.done)
		return r
	}

	r.pid = cmd.Process.Pid
	logging.Debug().Str("command", c.String()).Int("pid", r.pid).Msg("Process started")

	go r.wait(cmd)
	return r
}

// wait blocks until the program and its output copiers finish, then emits
// the terminal event. exec.Cmd.Wait only returns after every Stdout/Stderr
// write has completed, so output always precedes the exit event.
func (r *Run) wait(cmd *exec.Cmd) {
	defer r.cancel()

	err := cmd.Wait()

	ev := Event{Kind: EventExit}
	if cmd.ProcessState != nil {
		ev.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		ev.ExitCode = -1
	}
	if err != nil {
		ev.Err = err
	}

	logging.Debug().Int("pid", r.pid).Int("exit_code", ev.ExitCode).Msg("Process exited")

	r.events <- ev
	close(r.events)
	close(r.done)
}

// Events returns the ordered event stream. It is closed after the terminal event.
func (r *Run) Events() <-chan Event {
	return r.events
}

// Done is closed once the terminal event has been queued.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Stop asks the program to terminate. It is safe to call more than once and
// after the program has exited.
func (r *Run) Stop() {
	r.cancel()
}

// PID returns the operating system process id, or 0 if the program never started.
func (r *Run) PID() int {
	return r.pid
}

// Command returns the invocation this Run was started with.
func (r *Run) Command() Command {
	return r.cmd
}

// streamWriter turns writes from exec's output copier into events.
type streamWriter struct {
	kind EventKind
	out  chan<- Event
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.out <- Event{Kind: w.kind, Text: string(p)}
	return len(p), nil
}
