// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package notify fans out a user-visible subset of pipeline events to
// connected clients over websockets, grouped by the connecting token's
// (user_id, campaign_id).
package notify

import "time"

// Notification type strings, recovered verbatim from the original
// client-facing notification_service.py / client.py call sites.
const (
	TypeDiscoveryStarted    = "client.discovery.started"
	TypeDiscoveryFailed     = "client.discovery.failed"
	TypeEnrichmentProgress  = "client.enrichment.progress"
	TypeMatchesReady        = "client.matches.ready"
	TypeLimitReached        = "client.limit.reached"
	TypeReviewReady         = "client.review.ready"
	TypeVettingFiltered     = "client.review.filtered"
	TypeMatchApproved       = "client.match.approved"
	TypeMatchRejected       = "client.match.rejected"
	TypeConnectionConfirmed = "connection_established"
)

// Priority levels a notification may carry.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification is the envelope delivered to a connected client, shaped
// per spec.md §4.9's {id, type, title, message, data, timestamp,
// campaign_id, priority}.
type Notification struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	CampaignID string         `json:"campaign_id,omitempty"`
	Priority   string         `json:"priority"`
}
