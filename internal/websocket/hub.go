// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	// MessageTypeSnapshot carries a backup.Snapshot.
	MessageTypeSnapshot = "snapshot"
	// MessageTypeReclaimed is sent when the job left the registry (downloaded,
	// expired, swept or aborted) before reaching a terminal status.
	MessageTypeReclaimed = "reclaimed"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ReclaimedData is the payload of a reclaimed message.
type ReclaimedData struct {
	ID string `json:"id"`
}

// Feed is the job stream a watch connection forwards to its client.
type Feed struct {
	// Initial is sent as soon as the connection is registered.
	Initial backup.Snapshot

	// Updates delivers later job states and is closed when the job is
	// reclaimed or Stop is called.
	Updates <-chan backup.Job

	// Render converts a job state into the snapshot sent to the client.
	Render func(backup.Job) backup.Snapshot

	// Stop releases the subscription. It is called once when the watch ends.
	Stop func()
}

// Hub tracks active watch connections so they can be closed on shutdown.
// It implements suture.Service.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
	}
}

// Watch streams feed to conn until the job reaches a terminal status, the
// job is reclaimed, the client disconnects or the hub shuts down. It blocks
// for the lifetime of the connection and always closes conn.
func (h *Hub) Watch(conn *websocket.Conn, feed Feed) {
	client := newClient(h, conn)
	if !h.register(client) {
		feed.Stop()
		client.closeWithReason(websocket.CloseGoingAway, "server shutting down")
		_ = conn.Close()
		return
	}
	metrics.TrackWSConnection(true)

	defer func() {
		feed.Stop()
		h.unregister(client)
		metrics.TrackWSConnection(false)
		_ = conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	go client.readPump()
	client.writePump(feed)
}

// Serve blocks until ctx is done and then closes every watch connection.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

// String names the hub in supervisor logs.
func (h *Hub) String() string {
	return "watch-hub"
}

// GetClientCount returns the number of open watch connections.
func (h *Hub) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	logging.Debug().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("Watch client connected")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		logging.Debug().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("Watch client disconnected")
	}
}

// logGracefulShutdown closes all clients and logs the shutdown.
// ctx.Err() is not logged as an error; cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()

	logging.Info().
		Str("component", "watch-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("Watch hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients marks the hub closed and signals every client to stop.
// Clients are closed in ID order.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		client.shutdown()
	}
	return len(clients)
}

// MarshalMessage encodes msg as it is written on the wire.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
