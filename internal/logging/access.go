// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package logging

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// AccessEvent is an audit record for an operation on a backup job or a
// restore. Tokens are masked before they are written.
type AccessEvent struct {
	// Event names the operation: "job_created", "download", "access_denied", ...
	Event     string
	JobID     string
	Container string
	Token     string
	IPAddress string
	UserAgent string
	Success   bool
	Error     string
	Details   map[string]string
}

// AccessLogger writes audit records for job and restore access.
type AccessLogger struct {
	logger zerolog.Logger
}

// NewAccessLogger creates an access logger on the global logger.
func NewAccessLogger() *AccessLogger {
	return &AccessLogger{
		logger: With().Str("component", "access").Logger(),
	}
}

// NewAccessLoggerWithLogger creates an access logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAccessLoggerWithLogger(logger zerolog.Logger) *AccessLogger {
	return &AccessLogger{
		logger: logger.With().Str("component", "access").Logger(),
	}
}

// LogEvent writes an access event. Failed events are logged at warn level.
func (l *AccessLogger) LogEvent(event *AccessEvent) {
	e := l.logger.Info()
	status := "success"
	if !event.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("event", event.Event).Str("status", status)

	if event.JobID != "" {
		e = e.Str("job_id", event.JobID)
	}
	if event.Container != "" {
		e = e.Str("container", SanitizeValue("container", event.Container))
	}
	if event.Token != "" {
		e = e.Str("token", SanitizeToken(event.Token))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogAccessDenied records a request rejected by token or container checks.
func (l *AccessLogger) LogAccessDenied(jobID, container, token, ip, reason string) {
	l.LogEvent(&AccessEvent{
		Event:     "access_denied",
		JobID:     jobID,
		Container: container,
		Token:     token,
		IPAddress: ip,
		Error:     reason,
	})
}

// LogDownload records the end of an artifact download.
func (l *AccessLogger) LogDownload(jobID, container, ip string, complete bool, bytes int64) {
	event := &AccessEvent{
		Event:     "download",
		JobID:     jobID,
		Container: container,
		IPAddress: ip,
		Success:   complete,
		Details:   map[string]string{"bytes": strconv.FormatInt(bytes, 10)},
	}
	if !complete {
		event.Error = "client disconnected before the artifact was fully sent"
	}
	l.LogEvent(event)
}

// LogRestore records a restore outcome.
func (l *AccessLogger) LogRestore(container, filename, ip string, success bool, message string) {
	event := &AccessEvent{
		Event:     "restore",
		Container: container,
		IPAddress: ip,
		Success:   success,
		Details:   map[string]string{"filename": filename},
	}
	if !success {
		event.Error = message
	}
	l.LogEvent(event)
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"secret", "bearer", "authorization", "password"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(SanitizeLogValue(err), 200)
}

// sensitiveKeys are detail keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"jwt":           true,
	"secret":        true,
	"authorization": true,
	"bearer":        true,
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	return SanitizeLogValue(value)
}

// SanitizeLogValue escapes control characters so user-supplied strings
// cannot forge log lines.
func SanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			const hex = "0123456789abcdef"
			b.WriteString(`\x`)
			b.WriteByte(hex[r>>4])
			b.WriteByte(hex[r&0xF])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
