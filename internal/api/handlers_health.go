// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package api

import (
	"context"
	"net/http"
	"time"
)

// handleHealthLive reports process liveness unconditionally: if this
// handler can run at all, the process is alive.
func (router *Router) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleHealthReady additionally checks the database is reachable,
// since a process that's alive but can't reach Postgres shouldn't
// receive traffic.
func (router *Router) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := router.Store.Ping(ctx); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "NOT_READY", "database unreachable")
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
