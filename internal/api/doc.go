// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package api provides the HTTP surface of Archivist: backup job creation,
status, download and abort, live job watching over WebSocket, archive
restore, restore history, health probes and Prometheus metrics.

# Routes

All JSON responses except restore results use the models.APIResponse
envelope.

	GET    /api/v1/health/live               liveness
	GET    /api/v1/health/ready              readiness (artifact store + export program)
	POST   /api/v1/backups                   create a job      {"container": "<name>"}
	GET    /api/v1/backups?container=<name>  list live and recent jobs for a container
	GET    /api/v1/backups/system            system status
	GET    /api/v1/backups/{id}              job status
	DELETE /api/v1/backups/{id}              abort and reclaim
	GET    /api/v1/backups/{id}/download     stream the artifact (one shot)
	GET    /api/v1/backups/{id}/watch        WebSocket snapshot stream
	POST   /api/v1/restore                   multipart restore upload
	GET    /api/v1/restore/history           recent restore runs
	GET    /metrics                          Prometheus metrics

# Capability Tokens

Every job is bound to the token presented when it was created. Tokens are
read from "Authorization: Bearer <token>" or the token query parameter (for
browser downloads and WebSocket clients). A missing token is 401, a token or
container mismatch is 403. In AUTH_MODE=jwt the token must also be a valid
signed JWT.

# Errors

Errors from the backup package are mapped to HTTP status codes by
classifyBackupError. Internal errors are logged and reported with a generic
message.

# Usage

	handler := api.NewHandler(api.HandlerOptions{
	    Backups:  manager,
	    Restores: restorer,
	    History:  historyStore,
	    Hub:      hub,
	    Config:   cfg,
	    Version:  version,
	})
	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddlewareFromConfig(cfg.Security))
	srv := &http.Server{Handler: router.SetupChi()}
*/
package api
