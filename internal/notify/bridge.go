// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrhick1/pgl-pipeline/internal/eventbus"
)

// Subscriber is the narrow seam onto the event bus (internal/eventbus.Bus).
type Subscriber interface {
	Subscribe(ctx context.Context, eventType eventbus.Type, handlerName string, handler eventbus.Handler) error
}

// Bridge translates the user-visible subset of pipeline events into
// client notifications, grounded on notification_service.py's
// _setup_event_handlers / _handle_* methods: discovery progress,
// enrichment completion, vetting outcomes, and match decisions all
// become one client.* notification apiece.
type Bridge struct {
	Hub *Hub
}

// Attach subscribes the bridge's handlers on bus for every event type
// it translates.
func (b *Bridge) Attach(ctx context.Context, bus Subscriber) error {
	subs := []struct {
		eventType eventbus.Type
		name      string
		fn        eventbus.Handler
	}{
		{eventbus.MediaDiscovered, "notify-discovery", b.handleMediaDiscovered},
		{eventbus.EnrichmentCompleted, "notify-enrichment", b.handleEnrichmentCompleted},
		{eventbus.VettingCompleted, "notify-vetting", b.handleVettingCompleted},
		{eventbus.MatchApproved, "notify-match-approved", b.handleMatchDecision},
		{eventbus.MatchRejected, "notify-match-rejected", b.handleMatchDecision},
		{eventbus.AutoDiscoveryComplete, "notify-auto-discovery", b.handleAutoDiscoveryCompleted},
	}
	for _, s := range subs {
		if err := bus.Subscribe(ctx, s.eventType, s.name, s.fn); err != nil {
			return fmt.Errorf("notify: attach %s: %w", s.name, err)
		}
	}
	return nil
}

func campaignIDFromData(evt eventbus.Event) (string, bool) {
	v, ok := evt.Data["campaign_id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func stringField(evt eventbus.Event, key, fallback string) string {
	if v, ok := evt.Data[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// intField reads a numeric event-data field, tolerant of both plain int
// (an event published and consumed in-process without a JSON
// round-trip) and float64 (the shape any event takes once it has
// passed through Event.Marshal/Unmarshal, since encoding/json decodes
// all JSON numbers into interface{} as float64).
func intField(evt eventbus.Event, key string) int {
	switch v := evt.Data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (b *Bridge) handleMediaDiscovered(_ context.Context, evt eventbus.Event) error {
	campaignID, ok := campaignIDFromData(evt)
	if !ok {
		return nil
	}
	mediaName := stringField(evt, "media_name", "a podcast")
	b.Hub.SendToCampaign(campaignID, Notification{
		ID:         uuid.NewString(),
		Type:       TypeDiscoveryStarted,
		Title:      "Discovery In Progress",
		Message:    fmt.Sprintf("New podcast discovered: %s", mediaName),
		Data:       evt.Data,
		Timestamp:  evt.Timestamp,
		CampaignID: campaignID,
		Priority:   PriorityNormal,
	})
	return nil
}

func (b *Bridge) handleEnrichmentCompleted(_ context.Context, evt eventbus.Event) error {
	campaignID, ok := campaignIDFromData(evt)
	if !ok {
		return nil
	}
	mediaName := stringField(evt, "media_name", "podcast")
	b.Hub.SendToCampaign(campaignID, Notification{
		ID:         uuid.NewString(),
		Type:       TypeEnrichmentProgress,
		Title:      "Podcast Analysis Complete",
		Message:    fmt.Sprintf("Enrichment completed for %s", mediaName),
		Data:       evt.Data,
		Timestamp:  evt.Timestamp,
		CampaignID: campaignID,
		Priority:   PriorityNormal,
	})
	return nil
}

func (b *Bridge) handleVettingCompleted(_ context.Context, evt eventbus.Event) error {
	campaignID, ok := campaignIDFromData(evt)
	if !ok {
		return nil
	}
	mediaName := stringField(evt, "media_name", "podcast")
	score := intField(evt, "vetting_score")

	n := Notification{
		ID:         uuid.NewString(),
		Data:       evt.Data,
		Timestamp:  evt.Timestamp,
		CampaignID: campaignID,
	}
	if score >= 50 {
		n.Type = TypeReviewReady
		n.Title = "New Review Ready"
		n.Message = fmt.Sprintf("%s passed vetting (score: %d/100) - ready for your review", mediaName, score)
		n.Priority = PriorityHigh
	} else {
		n.Type = TypeVettingFiltered
		n.Title = "Podcast Filtered Out"
		n.Message = fmt.Sprintf("%s didn't meet criteria (score: %d/100)", mediaName, score)
		n.Priority = PriorityLow
	}
	b.Hub.SendToCampaign(campaignID, n)
	return nil
}

func (b *Bridge) handleMatchDecision(_ context.Context, evt eventbus.Event) error {
	campaignID, ok := campaignIDFromData(evt)
	if !ok {
		return nil
	}
	mediaName := stringField(evt, "media_name", "podcast")

	approved := evt.EventType == eventbus.MatchApproved
	n := Notification{
		ID:         uuid.NewString(),
		Data:       evt.Data,
		Timestamp:  evt.Timestamp,
		CampaignID: campaignID,
		Priority:   PriorityNormal,
	}
	if approved {
		n.Type = TypeMatchApproved
		n.Title = "Match Approved"
		n.Message = fmt.Sprintf("%s approved", mediaName)
	} else {
		n.Type = TypeMatchRejected
		n.Title = "Match Rejected"
		n.Message = fmt.Sprintf("%s rejected", mediaName)
	}
	b.Hub.SendToCampaign(campaignID, n)
	return nil
}

// handleAutoDiscoveryCompleted mirrors client.py's end-of-run notification
// sequence: an error ends the run with client.discovery.failed alone, a
// paused run sends client.limit.reached followed by client.matches.ready,
// and every other run sends client.matches.ready on its own - always
// carrying the run's matches_created count.
func (b *Bridge) handleAutoDiscoveryCompleted(_ context.Context, evt eventbus.Event) error {
	campaignID, ok := campaignIDFromData(evt)
	if !ok {
		return nil
	}
	status := stringField(evt, "status", "completed")
	matchesCreated := intField(evt, "matches_created")

	if status == "error" {
		b.Hub.SendToCampaign(campaignID, Notification{
			ID:         uuid.NewString(),
			Type:       TypeDiscoveryFailed,
			Title:      "Auto-Discovery Failed",
			Message:    "Auto-discovery run ended with an error",
			Data:       evt.Data,
			Timestamp:  evt.Timestamp,
			CampaignID: campaignID,
			Priority:   PriorityHigh,
		})
		return nil
	}

	if status == "paused" {
		b.Hub.SendToCampaign(campaignID, Notification{
			ID:         uuid.NewString(),
			Type:       TypeLimitReached,
			Title:      "Weekly Match Limit Reached",
			Message:    "Auto-discovery paused after reaching this week's match allowance",
			Data:       evt.Data,
			Timestamp:  evt.Timestamp,
			CampaignID: campaignID,
			Priority:   PriorityHigh,
		})
	}

	b.Hub.SendToCampaign(campaignID, Notification{
		ID:         uuid.NewString(),
		Type:       TypeMatchesReady,
		Title:      "Auto-Discovery Complete",
		Message:    fmt.Sprintf("Auto-discovery run completed: %d matches created", matchesCreated),
		Data:       evt.Data,
		Timestamp:  evt.Timestamp,
		CampaignID: campaignID,
		Priority:   PriorityNormal,
	})
	return nil
}
