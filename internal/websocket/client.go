// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var clientIDCounter atomic.Uint64

// Client is a single watch connection.
type Client struct {
	// id orders clients deterministically during shutdown.
	id   uint64
	hub  *Hub
	conn *websocket.Conn

	// send carries replies produced by the read side (pongs).
	send chan Message

	// done is closed when the client disconnects or the hub shuts down.
	done      chan struct{}
	doneOnce  sync.Once
	hubClosed atomic.Bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, 8),
		done: make(chan struct{}),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() uint64 {
	return c.id
}

func (c *Client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Client) shutdown() {
	c.hubClosed.Store(true)
	c.stop()
}

// readPump consumes client frames. Watchers only send pings; anything that
// fails to decode ends the connection.
func (c *Client) readPump() {
	defer c.stop()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("Watch client read error")
			}
			return
		}
		if msg.Type == MessageTypePing {
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		}
	}
}

// writePump forwards the feed to the connection. It returns when the feed
// ends, a write fails, or the client is stopped.
func (c *Client) writePump(feed Feed) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if !c.write(Message{Type: MessageTypeSnapshot, Data: feed.Initial}) {
		return
	}
	if terminal(feed.Initial.Status) {
		c.closeWithReason(websocket.CloseNormalClosure, string(feed.Initial.Status))
		return
	}

	for {
		select {
		case job, ok := <-feed.Updates:
			if !ok {
				c.write(Message{Type: MessageTypeReclaimed, Data: ReclaimedData{ID: feed.Initial.ID}})
				c.closeWithReason(websocket.CloseNormalClosure, MessageTypeReclaimed)
				return
			}
			snap := feed.Render(job)
			if !c.write(Message{Type: MessageTypeSnapshot, Data: snap}) {
				return
			}
			if terminal(snap.Status) {
				c.closeWithReason(websocket.CloseNormalClosure, string(snap.Status))
				return
			}

		case msg := <-c.send:
			if !c.write(msg) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			if c.hubClosed.Load() {
				c.closeWithReason(websocket.CloseGoingAway, "server shutting down")
			}
			return
		}
	}
}

func (c *Client) write(msg Message) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set write deadline")
		return false
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		logging.Debug().Err(err).Uint64("client_id", c.id).Msg("Watch client write failed")
		return false
	}
	metrics.WSMessagesSent.Inc()
	return true
}

func (c *Client) closeWithReason(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// terminal reports whether a watch should end after sending status.
func terminal(status backup.Status) bool {
	switch status {
	case backup.StatusCompleted, backup.StatusError, backup.StatusDownloaded:
		return true
	default:
		return false
	}
}
