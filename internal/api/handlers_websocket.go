// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/notify"
)

// upgrader is grounded on the teacher's getUpgrader/checkWebSocketOrigin
// pair: a handshake timeout against slow-client abuse and an explicit
// origin allowlist rather than the gorilla default of rejecting
// cross-origin upgrades outright.
func (router *Router) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      router.checkWebSocketOrigin,
	}
}

func (router *Router) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing origin header")
		return false
	}
	for _, allowed := range router.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// handleNotificationsWS upgrades the connection and registers a notify
// client scoped to the caller's own user and campaign. Browsers can't set
// an Authorization header on the upgrade request, so the bearer token
// travels as a query parameter instead, the usual exception made for
// websocket auth.
func (router *Router) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, http.StatusUnauthorized, errCodeUnauthorized, "missing token")
		return
	}
	claims, err := router.Verifier.Verify(token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, errCodeUnauthorized, "invalid token")
		return
	}

	upgrader := router.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := notify.NewClient(router.Hub, conn, claims.UserID, claims.CampaignID)
	router.Hub.Register(client)
	client.Start()
}
