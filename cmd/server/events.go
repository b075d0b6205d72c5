// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package main

import (
	"context"
	"strconv"

	"github.com/patrhick1/pgl-pipeline/internal/controller"
	"github.com/patrhick1/pgl-pipeline/internal/discovery"
	"github.com/patrhick1/pgl-pipeline/internal/enrichment"
	"github.com/patrhick1/pgl-pipeline/internal/eventbus"
	"github.com/patrhick1/pgl-pipeline/internal/match"
	"github.com/patrhick1/pgl-pipeline/internal/vetting"
)

// busPublisher wraps *eventbus.Bus to satisfy every stage package's own
// narrow EventPublisher interface. Each stage defines its event payload
// type locally (so none of them import eventbus), so the adapter lives
// here, in the one place that's allowed to know about all of them.
type busPublisher struct {
	bus *eventbus.Bus
}

func (p *busPublisher) PublishMediaDiscovered(ctx context.Context, evt discovery.MediaDiscoveredEvent) error {
	return p.bus.Publish(ctx, eventbus.New(eventbus.MediaDiscovered, "media", strconv.FormatInt(evt.MediaID, 10), map[string]any{
		"campaign_id": evt.CampaignID.String(),
		"media_name":  evt.MediaName,
		"keyword":     evt.Keyword,
	}, "discovery"))
}

func (p *busPublisher) PublishEnrichmentCompleted(ctx context.Context, evt enrichment.EnrichmentCompletedEvent) error {
	return p.bus.Publish(ctx, eventbus.New(eventbus.EnrichmentCompleted, "discovery", strconv.FormatInt(evt.DiscoveryID, 10), map[string]any{
		"media_id": evt.MediaID,
	}, "enrichment"))
}

func (p *busPublisher) PublishVettingCompleted(ctx context.Context, evt vetting.VettingCompletedEvent) error {
	return p.bus.Publish(ctx, eventbus.New(eventbus.VettingCompleted, "discovery", strconv.FormatInt(evt.DiscoveryID, 10), map[string]any{
		"score":  evt.Score,
		"passed": evt.Passed,
	}, "vetting"))
}

// matchPublisher additionally re-publishes a vetting-completed event,
// per internal/match.EventPublisher's second method - the match
// creator's own safety net for a discovery that reached it without one
// ever being published (e.g. after a crash-recovery replay).
type matchPublisher struct {
	bus *eventbus.Bus
}

func (p *matchPublisher) PublishMatchCreated(ctx context.Context, evt match.MatchCreatedEvent) error {
	return p.bus.Publish(ctx, eventbus.New(eventbus.MatchCreated, "match_suggestion", strconv.FormatInt(evt.MatchSuggestionID, 10), map[string]any{
		"discovery_id": evt.DiscoveryID,
		"campaign_id":  evt.CampaignID,
		"media_id":     evt.MediaID,
	}, "match"))
}

func (p *matchPublisher) PublishVettingCompleted(ctx context.Context, evt match.VettingCompletedEvent) error {
	return p.bus.Publish(ctx, eventbus.New(eventbus.VettingCompleted, "discovery", strconv.FormatInt(evt.DiscoveryID, 10), map[string]any{
		"score":  evt.Score,
		"passed": evt.Passed,
	}, "match"))
}

// controllerPublisher satisfies internal/controller.EventPublisher.
type controllerPublisher struct {
	bus *eventbus.Bus
}

func (p *controllerPublisher) PublishAutoDiscoveryCompleted(ctx context.Context, evt controller.CompletedEvent) error {
	return p.bus.Publish(ctx, eventbus.New(eventbus.AutoDiscoveryComplete, "campaign", evt.CampaignID.String(), map[string]any{
		"status":              evt.Status,
		"discoveries_created": evt.DiscoveriesCreated,
		"matches_created":     evt.MatchesCreated,
	}, "controller"))
}

