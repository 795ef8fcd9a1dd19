// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

/*
Package websocket streams backup job progress to watching clients.

Each connection to GET /api/v1/backups/{id}/watch is served by Hub.Watch with
a Feed taken from backup.Manager.Watch. The client receives:

  - a "snapshot" message with the current backup.Snapshot on connect
  - a "snapshot" message after every later state change (intermediate states
    may be coalesced for slow clients)
  - a "reclaimed" message if the job leaves the registry first

The server closes the connection normally once a snapshot reports completed,
error or downloaded. Clients may send {"type":"ping"} and receive a "pong".

The Hub is a suture service: when its context is canceled every open watch
is closed with CloseGoingAway and later connections are refused.

Each Client runs a read pump in its own goroutine and the write pump in the
handler goroutine, so all writes to a connection happen from one goroutine.
*/
package websocket
