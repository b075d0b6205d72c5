// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
)

// targeted pairs a notification with the group it's destined for.
type targeted struct {
	key          groupKey
	notification Notification
}

// Hub maintains every connected client grouped by (user_id,
// campaign_id) and fans notifications out to the right group,
// generalized from internal/websocket/hub.go's single global client
// map to a map[groupKey][]*Client registry. Delivery is best-effort: a
// client whose send buffer is full or whose socket errors is dropped
// from its group rather than blocking the others.
type Hub struct {
	mu      sync.RWMutex
	groups  map[groupKey]map[*Client]bool
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan targeted
}

// NewHub builds an empty Hub. Call RunWithContext to start its loop.
func NewHub() *Hub {
	return &Hub{
		groups:     make(map[groupKey]map[*Client]bool),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan targeted, 256),
	}
}

// Register adds a client to the hub and starts its pumps.
func (h *Hub) Register(c *Client) {
	h.register <- c
	c.Start()
}

// RunWithContext drives the hub's event loop until ctx is canceled,
// matching internal/websocket/hub.go's priority-ordered select:
// shutdown first, then client lifecycle, then broadcast delivery — so
// client registration state is always consistent before a message is
// ever delivered.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.register:
			h.addClient(c)
			continue
		case c := <-h.unregister:
			h.removeClient(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case t := <-h.broadcast:
			h.deliver(t)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[c.key] == nil {
		h.groups[c.key] = make(map[*Client]bool)
	}
	h.groups[c.key][c] = true
	h.clients[c] = true
	logging.Info().Str("user_id", c.key.UserID).Str("campaign_id", c.key.CampaignID).Int("total_clients", len(h.clients)).Msg("notify client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if group, ok := h.groups[c.key]; ok {
		delete(group, c)
		if len(group) == 0 {
			delete(h.groups, c.key)
		}
	}
	close(c.send)
	logging.Info().Str("user_id", c.key.UserID).Str("campaign_id", c.key.CampaignID).Int("total_clients", len(h.clients)).Msg("notify client disconnected")
}

func (h *Hub) deliver(t targeted) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group := h.groups[t.key]
	if len(group) == 0 {
		return
	}

	clients := make([]*Client, 0, len(group))
	for c := range group {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var dropped []*Client
	for _, c := range clients {
		select {
		case c.send <- t.notification:
		default:
			dropped = append(dropped, c)
		}
	}
	for _, c := range dropped {
		delete(group, c)
		delete(h.clients, c)
		close(c.send)
	}
	if len(group) == 0 {
		delete(h.groups, t.key)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*Client]bool)
	h.groups = make(map[groupKey]map[*Client]bool)
	logging.Info().Msg("notify hub stopped, closed all clients")
}

// Send queues a notification for delivery to every client watching
// userID's view of campaignID. Non-blocking: if the broadcast channel
// itself is full, the notification is dropped and logged rather than
// stalling the caller (typically an event bus handler).
func (h *Hub) Send(userID, campaignID string, n Notification) {
	select {
	case h.broadcast <- targeted{key: groupKey{UserID: userID, CampaignID: campaignID}, notification: n}:
	default:
		logging.Warn().Str("user_id", userID).Str("campaign_id", campaignID).Str("type", n.Type).Msg("notify broadcast channel full, dropping notification")
	}
}

// SendToCampaign queues a notification for delivery to every connected
// client watching campaignID, regardless of which user owns the
// connection — grounded on the original notification service's
// send_to_campaign_subscribers, which fans out to every subscriber of a
// campaign_id rather than requiring the caller to already know the
// owning user.
func (h *Hub) SendToCampaign(campaignID string, n Notification) {
	h.mu.RLock()
	var keys []groupKey
	for key := range h.groups {
		if key.CampaignID == campaignID {
			keys = append(keys, key)
		}
	}
	h.mu.RUnlock()

	for _, key := range keys {
		select {
		case h.broadcast <- targeted{key: key, notification: n}:
		default:
			logging.Warn().Str("campaign_id", campaignID).Str("type", n.Type).Msg("notify broadcast channel full, dropping notification")
		}
	}
}

// ClientCount returns the number of currently connected clients, for
// health/metrics reporting.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
