// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// handler groups the route handlers that need more than the bare Router
// (campaign and review-task endpoints), grounded on the teacher's own
// Handler struct holding its dependencies once and being reused across
// every handlers_*.go file.
type handler struct {
	router *Router
}

func parseCampaignID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "invalid campaign id")
		return uuid.UUID{}, false
	}
	return id, true
}

func parseUUIDQuery(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(r.URL.Query().Get(param))
}

// triggerDiscovery runs one discovery pass for the campaign synchronously
// and reports how much it found; the scheduler's own auto-discovery task
// covers the unattended case.
func (h *handler) triggerDiscovery(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}
	maxDiscoveries := 25
	if v := r.URL.Query().Get("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxDiscoveries = n
		}
	}
	result, err := h.router.Discovery.Run(r.Context(), campaignID, maxDiscoveries)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, "discovery run failed")
		return
	}
	writeSuccess(w, r, http.StatusOK, result)
}

// discoveryStatus reports the most recent auto-discovery run for the
// campaign, for a client polling after triggering a background pass.
func (h *handler) discoveryStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}
	run, err := h.router.Store.LatestAutoDiscoveryRun(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to load discovery status")
		return
	}
	if run == nil {
		writeSuccess(w, r, http.StatusOK, map[string]string{"status": "never_run"})
		return
	}
	writeSuccess(w, r, http.StatusOK, run)
}

type updateAutoDiscoveryRequest struct {
	Enabled  bool     `json:"enabled"`
	Keywords []string `json:"keywords"`
}

// updateAutoDiscovery lets a client enable or disable a campaign's
// auto-discovery and replace its keyword list.
func (h *handler) updateAutoDiscovery(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}
	var req updateAutoDiscoveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if err := h.router.Store.UpdateAutoDiscoverySettings(r.Context(), campaignID, req.Enabled, req.Keywords); err != nil {
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to update auto-discovery settings")
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "updated"})
}

// listDiscoveries paginates a campaign's discoveries, optionally narrowed
// to a lifecycle stage via ?status=enrichment|vetting|ready|approved.
func (h *handler) listDiscoveries(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}
	filter := store.DiscoveryStatusFilter(r.URL.Query().Get("status"))
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	discoveries, err := h.router.Store.DiscoveriesForCampaign(r.Context(), campaignID, filter, limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to load discoveries")
		return
	}
	writeSuccess(w, r, http.StatusOK, discoveries)
}

// revetDiscovery is the operator escape hatch that forces a discovery
// back into the vetting queue, mirroring Store.ResetForRevet's own
// grounding in the original's trigger_single_vetting script.
func (h *handler) revetDiscovery(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseCampaignID(w, r); !ok {
		return
	}
	discoveryID, err := strconv.ParseInt(chi.URLParam(r, "discoveryID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "invalid discovery id")
		return
	}
	if err := h.router.Store.ResetForRevet(r.Context(), discoveryID); err != nil {
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to reset discovery")
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "reset"})
}
