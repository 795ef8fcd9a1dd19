// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

// Archivist API
//
// @title Archivist API
// @version 1.0
// @description Asynchronous backup jobs for storage containers, one-time artifact download and archive restore.
// @description
// @description ## Capability tokens
// @description
// @description Every backup job is bound to the token that created it. Send it as
// @description `Authorization: Bearer <token>` or as the `token` query parameter
// @description (browser downloads). With AUTH_MODE=jwt the token must be an HS256 JWT
// @description issued by `archivist token`.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {"code": "FORBIDDEN", "message": "token does not match backup"},
// @description   "metadata": {"timestamp": "2026-01-02T12:00:00Z"}
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/archivist/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3001
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Capability token as "Bearer <token>".
//
// @tag.name Backups
// @tag.description Backup job creation, status, download and abort
//
// @tag.name Restore
// @tag.description Archive restore and restore history
//
// @tag.name Health
// @tag.description Liveness and readiness probes
package main
