// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/middleware"
	"github.com/tomtom215/archivist/internal/models"
	"github.com/tomtom215/archivist/internal/validation"
)

// respondJSON writes response as JSON with the given status. Job state
// changes from one request to the next, so responses are never cached.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	writeJSON(w, status, response)
}

// writeJSON writes any value as an uncached JSON body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in the success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	resp := models.Success(data)
	resp.Metadata.RequestID = middleware.GetRequestID(r.Context())
	respondJSON(w, status, resp)
}

// respondError sends an error envelope. err, when set, is logged with the
// code but never sent to the client.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", logging.SanitizeLogValue(code)).
			Str("error", logging.SanitizeLogValue(err.Error())).
			Msg("API Error")
	}
	respondJSON(w, status, models.Failure(code, message))
}

// respondErrorDetails sends an error envelope carrying field details.
func respondErrorDetails(w http.ResponseWriter, status int, apiErr *models.APIError) {
	resp := models.Failure(apiErr.Code, apiErr.Message)
	resp.Error.Details = apiErr.Details
	respondJSON(w, status, resp)
}

// validateRequest runs struct validation and converts failures to an APIError.
func validateRequest(v interface{}) *models.APIError {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// getIntParam reads an integer query parameter, returning defaultValue when
// it is missing or malformed.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// clientIP returns the caller address without the port. chi's RealIP
// middleware has already applied X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
