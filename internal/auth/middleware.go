// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/archivist/internal/config"
	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/models"
)

// AuthMode selects how capability tokens are checked.
type AuthMode string

const (
	// AuthModeNone accepts any non-empty token as an opaque string.
	AuthModeNone AuthMode = "none"
	// AuthModeJWT additionally requires the token to be a valid HS256 JWT.
	AuthModeJWT AuthMode = "jwt"
)

type contextKey string

const (
	tokenContextKey  contextKey = "capability-token"
	claimsContextKey contextKey = "claims"
)

// TokenQueryParam is the query parameter accepted in place of the
// Authorization header, for browser-initiated downloads.
const TokenQueryParam = "token"

// Middleware extracts and checks capability tokens.
type Middleware struct {
	authMode   AuthMode
	jwtManager *JWTManager
}

// NewMiddleware creates the token middleware for the configured auth mode.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	m := &Middleware{authMode: AuthMode(cfg.AuthMode)}
	switch m.authMode {
	case AuthModeNone:
	case AuthModeJWT:
		jwtManager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.jwtManager = jwtManager
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
	return m, nil
}

// Mode returns the configured auth mode.
func (m *Middleware) Mode() AuthMode {
	return m.authMode
}

// Capability stores the request's capability token in the context.
//
// A request without a token is passed through unchanged: whether a token is
// required, and which job it must match, is decided by the backup layer. In
// jwt mode a token that is present but invalid is rejected here with 401.
func (m *Middleware) Capability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := TokenFromRequest(r)
		if err != nil {
			rejectToken(w, err.Error())
			return
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), tokenContextKey, token)
		if m.authMode == AuthModeJWT {
			claims, err := m.jwtManager.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Capability token validation failed")
				rejectToken(w, "invalid token")
				return
			}
			ctx = context.WithValue(ctx, claimsContextKey, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromRequest extracts a capability token from the Authorization
// header or, failing that, the token query parameter. An Authorization
// header with a scheme other than Bearer is an error.
func TokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", fmt.Errorf("invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	return r.URL.Query().Get(TokenQueryParam), nil
}

// TokenFromContext returns the token stored by Capability, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// ClaimsFromContext returns the validated claims in jwt mode, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

func rejectToken(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="archivist"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(models.Failure("UNAUTHORIZED", message)); err != nil {
		logging.Error().Err(err).Msg("Failed to write unauthorized response")
	}
}

// SecurityHeaders adds security headers to all responses. The API serves no
// HTML, so the content security policy denies everything.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		w.Header().Set("Referrer-Policy", "no-referrer")

		// HSTS (only if using HTTPS - check X-Forwarded-Proto)
		if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
