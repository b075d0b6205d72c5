// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/patrhick1/pgl-pipeline/internal/eventbus"
)

// listReviewTasks returns a campaign's pending review tasks, the queue a
// client polls to drive its approve/reject UI.
func (h *handler) listReviewTasks(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseUUIDQuery(r, "campaign_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "campaign_id query parameter required")
		return
	}
	tasks, err := h.router.Store.ReviewTasksForCampaign(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to load review tasks")
		return
	}
	writeSuccess(w, r, http.StatusOK, tasks)
}

// resolveReviewTask builds the approve/reject handler for a fixed
// decision, so the router can register both outcomes against the same
// underlying logic without duplicating it.
func (h *handler) resolveReviewTask(decision string) http.HandlerFunc {
	matchStatus := "rejected"
	eventType := eventbus.MatchRejected
	if decision == "approved" {
		matchStatus = "approved"
		eventType = eventbus.MatchApproved
	}
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errCodeBadRequest, "invalid task id")
			return
		}
		task, err := h.router.Store.GetReviewTask(r.Context(), taskID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to load review task")
			return
		}
		if task == nil {
			writeError(w, r, http.StatusNotFound, errCodeNotFound, "review task not found")
			return
		}
		if err := h.router.Store.ResolveReviewTask(r.Context(), taskID, decision); err != nil {
			writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to resolve review task")
			return
		}
		if task.MatchSuggestionID != nil {
			if err := h.router.Store.UpdateMatchStatus(r.Context(), *task.MatchSuggestionID, matchStatus); err != nil {
				writeError(w, r, http.StatusInternalServerError, errCodeInternal, "failed to update match status")
				return
			}
		}
		writeSuccess(w, r, http.StatusOK, map[string]string{"status": decision})

		if h.router.Events != nil {
			evt := eventbus.New(eventType, "review_task", strconv.FormatInt(taskID, 10),
				map[string]any{"task_id": taskID, "campaign_id": task.CampaignID.String(), "status": matchStatus}, "api")
			_ = h.router.Events.Publish(r.Context(), evt)
		}
	}
}
