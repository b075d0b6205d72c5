// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package notify

import (
	"context"
	"testing"

	"github.com/patrhick1/pgl-pipeline/internal/eventbus"
)

func TestHandleVettingCompletedRoutesByScore(t *testing.T) {
	h := NewHub()
	client := testClient("user-1", "camp-1")
	h.addClient(client)
	b := &Bridge{Hub: h}

	ctx := context.Background()
	passed := eventbus.New(eventbus.VettingCompleted, "match", "1", map[string]any{
		"campaign_id":   "camp-1",
		"media_name":    "Great Show",
		"vetting_score": float64(72),
	}, "vetting")
	if err := b.handleVettingCompleted(ctx, passed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.deliver(<-h.broadcast)

	select {
	case n := <-client.send:
		if n.Type != TypeReviewReady {
			t.Fatalf("expected review-ready notification, got %q", n.Type)
		}
	default:
		t.Fatal("expected a notification to be queued")
	}

	failed := eventbus.New(eventbus.VettingCompleted, "match", "2", map[string]any{
		"campaign_id":   "camp-1",
		"media_name":    "Mediocre Show",
		"vetting_score": float64(20),
	}, "vetting")
	if err := b.handleVettingCompleted(ctx, failed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.deliver(<-h.broadcast)

	select {
	case n := <-client.send:
		if n.Type != TypeVettingFiltered {
			t.Fatalf("expected filtered notification, got %q", n.Type)
		}
	default:
		t.Fatal("expected a notification to be queued")
	}
}

func TestHandleAutoDiscoveryCompletedMapsStatusToType(t *testing.T) {
	h := NewHub()
	client := testClient("user-1", "camp-1")
	h.addClient(client)
	b := &Bridge{Hub: h}
	ctx := context.Background()

	paused := eventbus.New(eventbus.AutoDiscoveryComplete, "campaign", "camp-1", map[string]any{
		"campaign_id": "camp-1",
		"status":      "paused",
	}, "controller")
	if err := b.handleAutoDiscoveryCompleted(ctx, paused); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.deliver(<-h.broadcast)

	select {
	case n := <-client.send:
		if n.Type != TypeLimitReached {
			t.Fatalf("expected limit-reached notification, got %q", n.Type)
		}
	default:
		t.Fatal("expected a notification to be queued")
	}
}

func TestHandlersSkipEventsMissingCampaignID(t *testing.T) {
	h := NewHub()
	b := &Bridge{Hub: h}
	evt := eventbus.New(eventbus.VettingCompleted, "match", "1", map[string]any{"vetting_score": float64(80)}, "vetting")
	if err := b.handleVettingCompleted(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-h.broadcast:
		t.Fatal("expected no notification queued without a campaign_id")
	default:
	}
}

func TestIntFieldToleratesJSONRoundTripNumbers(t *testing.T) {
	evt := eventbus.New(eventbus.VettingCompleted, "match", "1", map[string]any{"vetting_score": float64(55)}, "")
	if got := intField(evt, "vetting_score"); got != 55 {
		t.Fatalf("expected 55, got %d", got)
	}
	missing := eventbus.New(eventbus.VettingCompleted, "match", "1", map[string]any{}, "")
	if got := intField(missing, "vetting_score"); got != 0 {
		t.Fatalf("expected 0 default, got %d", got)
	}
}
