// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package process

import (
	"strings"
	"unicode/utf8"
)

// DefaultOutputLimit caps accumulated program output at 10 MiB.
const DefaultOutputLimit = 10 << 20

// truncationMarker is appended once when output exceeds its limit.
const truncationMarker = "\n[output truncated]\n"

// Output accumulates program text up to a byte limit. Text past the limit
// is dropped and the output is marked truncated. Output is not safe for
// concurrent use; it is owned by the goroutine draining a Run.
type Output struct {
	b         strings.Builder
	limit     int
	truncated bool
}

// NewOutput creates an Output holding at most limit bytes.
// A limit <= 0 selects DefaultOutputLimit.
func NewOutput(limit int) *Output {
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	return &Output{limit: limit}
}

// Append adds text, discarding whatever does not fit.
func (o *Output) Append(s string) {
	if o.truncated {
		return
	}
	room := o.limit - o.b.Len()
	if len(s) <= room {
		o.b.WriteString(s)
		return
	}
	if room > 0 {
		o.b.WriteString(trimToRuneBoundary(s[:room]))
	}
	o.b.WriteString(truncationMarker)
	o.truncated = true
}

// String returns the accumulated text.
func (o *Output) String() string {
	return o.b.String()
}

// Len returns the number of bytes held.
func (o *Output) Len() int {
	return o.b.Len()
}

// Truncated reports whether any text was dropped.
func (o *Output) Truncated() bool {
	return o.truncated
}

// Result is the outcome of a Run drained by Collect.
type Result struct {
	Output    string
	Truncated bool

	// Started is false when the program could not be launched.
	Started  bool
	ExitCode int
	Err      error
}

// Success reports whether the program ran and exited with code 0.
func (r Result) Success() bool {
	return r.Started && r.ExitCode == 0
}

// Collect drains events until the channel closes, accumulating stdout and
// stderr text in arrival order into a capped buffer.
func Collect(events <-chan Event, limit int) Result {
	out := NewOutput(limit)
	res := Result{ExitCode: -1}

	for ev := range events {
		switch ev.Kind {
		case EventStdout, EventStderr:
			out.Append(ev.Text)
		case EventExit:
			res.Started = true
			res.ExitCode = ev.ExitCode
			res.Err = ev.Err
		case EventStartFailed:
			res.Err = ev.Err
			if ev.Err != nil {
				out.Append(ev.Err.Error())
			}
		}
	}

	res.Output = out.String()
	res.Truncated = out.Truncated()
	return res
}

// Tail returns at most n trailing bytes of s, cut on a rune boundary and
// trimmed of surrounding whitespace.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	for len(s) > 0 && !utf8.RuneStart(s[0]) {
		s = s[1:]
	}
	return s
}

// trimToRuneBoundary drops a trailing partial UTF-8 sequence.
func trimToRuneBoundary(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size != 1 {
			return s
		}
		s = s[:len(s)-1]
	}
	return s
}
