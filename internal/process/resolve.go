// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrProgramNotFound is returned when none of a program's candidate paths exist.
var ErrProgramNotFound = errors.New("program not found")

// Resolve returns the first candidate that exists as a regular file.
// Candidates without a path separator are looked up on PATH.
func Resolve(candidates []string) (string, error) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.ContainsRune(c, os.PathSeparator) && !strings.ContainsRune(c, '/') {
			if p, err := exec.LookPath(c); err == nil {
				return p, nil
			}
			continue
		}
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w (tried: %s)", ErrProgramNotFound, strings.Join(candidates, ", "))
}

// Program is an external program located through candidate paths, optionally
// run through an interpreter (for example "node" running a script).
type Program struct {
	// Interpreter is resolved through Resolve when set.
	Interpreter string

	// Candidates are tried in order; the first existing one wins.
	Candidates []string
}

// Resolve locates the program without building a command.
func (p Program) Resolve() (interpreter, script string, err error) {
	script, err = Resolve(p.Candidates)
	if err != nil {
		return "", "", err
	}
	if p.Interpreter == "" {
		return "", script, nil
	}
	interpreter, err = Resolve([]string{p.Interpreter})
	if err != nil {
		return "", "", fmt.Errorf("interpreter: %w", err)
	}
	return interpreter, script, nil
}

// Command resolves the program and builds an invocation with args.
func (p Program) Command(args ...string) (Command, error) {
	interpreter, script, err := p.Resolve()
	if err != nil {
		return Command{}, err
	}
	if interpreter == "" {
		return Command{Path: script, Args: args}, nil
	}
	return Command{Path: interpreter, Args: append([]string{script}, args...)}, nil
}
