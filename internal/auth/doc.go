// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package auth handles capability tokens for the backup API.

A backup job is bound to the exact token string presented when it was
created; only a request carrying the same token may poll, download or abort
it. This package only gets the token off the request:

  - Authorization: Bearer <token>
  - ?token=<token> (browser downloads, which cannot set headers)

Two modes are supported (AUTH_MODE):

  - none: the token is an opaque string chosen by the client
  - jwt: the token must also be an HS256 JWT signed with JWT_SECRET and not
    expired; invalid tokens are rejected with 401 before reaching a handler

Usage:

	mw, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
	    return err
	}
	r.Use(mw.Capability)

	// in a handler
	token := auth.TokenFromContext(r.Context())
*/
package auth
