// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package api

import "net/http"

// schedulerStatus reports every registered background task's kind,
// enabled state, and last-run time, the operator view onto the
// pipeline's own cron loop.
func (h *handler) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, h.router.Scheduler.Status())
}

type schedulerControlRequest struct {
	Task    string `json:"task"`
	Enabled bool   `json:"enabled"`
}

// schedulerControl lets an operator pause or resume a named background
// task without redeploying, the same escape hatch the review queue's
// revet endpoint gives for a single stuck discovery.
func (h *handler) schedulerControl(w http.ResponseWriter, r *http.Request) {
	var req schedulerControlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := h.router.Scheduler.SetEnabled(req.Task, req.Enabled); err != nil {
		writeError(w, r, http.StatusNotFound, errCodeNotFound, "unknown task")
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "updated"})
}
