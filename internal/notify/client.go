// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package notify

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

var clientIDCounter atomic.Uint64

// groupKey identifies which connected clients a notification fans out
// to: every socket opened for the same user watching the same campaign.
type groupKey struct {
	UserID     string
	CampaignID string
}

// Client is one connected, authenticated websocket subscriber.
type Client struct {
	id   uint64
	hub  *Hub
	key  groupKey
	conn *websocket.Conn
	send chan Notification
}

// NewClient wraps conn as a hub-managed subscriber for the given user
// and campaign.
func NewClient(hub *Hub, conn *websocket.Conn, userID, campaignID string) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		key:  groupKey{UserID: userID, CampaignID: campaignID},
		conn: conn,
		send: make(chan Notification, 64),
	}
}

// Start begins the client's read and write pumps. Call after Register.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump only exists to detect client disconnects and respond to
// control frames — the notifier never accepts client-originated
// domain messages.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Warn().Err(err).Msg("notify: failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Msg("notify: unexpected websocket close")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Warn().Err(err).Msg("notify: failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(n); err != nil {
				logging.Warn().Err(err).Msg("notify: failed to write notification")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
