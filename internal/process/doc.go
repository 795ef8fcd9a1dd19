// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package process supervises external export and import programs.

A Supervisor starts a program asynchronously and reports what it does as an
ordered stream of events:

  - EventStdout and EventStderr carry incremental output text
  - EventExit carries the numeric exit code
  - EventStartFailed is reported instead of EventExit when the program could
    not be launched at all (missing binary, permissions)

Exactly one terminal event (EventExit or EventStartFailed) is delivered per
Run, after which the events channel is closed. Output from a single stream
is delivered in the order it was written; stdout and stderr are independent
streams and may interleave. All output events of a Run are delivered before
its terminal event.

Consumers must drain Run.Events until it is closed. Run.Stop signals the
program to terminate (SIGTERM, then SIGKILL after the configured grace
period); the terminal event is still delivered.

# Usage

	sup := process.NewSupervisor(process.Options{})
	run := sup.Start(ctx, process.Command{Path: "/usr/bin/node", Args: []string{"export.js", "docs", out}})
	for ev := range run.Events() {
	    switch ev.Kind {
	    case process.EventStdout:
	        // progress
	    case process.EventExit:
	        // ev.ExitCode
	    }
	}

Collect drains a Run into a capped Output, which is how synchronous callers
(restore) accumulate everything the program printed.
*/
package process
