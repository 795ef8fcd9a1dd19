// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/archivist/internal/auth"
	"github.com/tomtom215/archivist/internal/middleware"
)

// Router wires handlers to routes and middleware.
type Router struct {
	handler       *Handler
	middleware    *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMiddleware *ChiMiddleware) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		middleware:    authMiddleware,
		chiMiddleware: chiMiddleware,
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)
	r.Use(auth.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom("health", RateLimitHealth))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// Backup Endpoints
	// ========================
	// Every job is bound to the capability token presented at creation;
	// the backup layer rejects requests whose token does not match.
	r.Route("/api/v1/backups", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.middleware.Capability)

		r.With(router.chiMiddleware.RateLimitCustom("create", RateLimitCreate)).Post("/", router.handler.CreateBackup)
		r.Get("/", router.handler.ListBackups)
		r.Get("/system", router.handler.BackupSystemStatus)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetBackup)
			r.Delete("/", router.handler.DeleteBackup)
			r.Get("/download", router.handler.DownloadBackup)
			r.With(router.chiMiddleware.RateLimitCustom("watch", RateLimitWatch)).Get("/watch", router.handler.WatchBackup)
		})
	})

	// ========================
	// Restore Endpoints
	// ========================
	r.Route("/api/v1/restore", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.middleware.Capability)

		r.With(router.chiMiddleware.RateLimitCustom("restore", RateLimitRestore)).Post("/", router.handler.RestoreBackup)
		r.Get("/history", router.handler.RestoreHistory)
	})

	// ========================
	// Prometheus Metrics
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}
