// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEventValidateRequiresCoreFields(t *testing.T) {
	evt := New(MatchCreated, "match", "42", nil, "")
	if err := evt.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	missingID := evt
	missingID.EntityID = ""
	if err := missingID.Validate(); err == nil {
		t.Fatal("expected error for missing entity_id")
	}

	missingType := evt
	missingType.EventType = ""
	if err := missingType.Validate(); err == nil {
		t.Fatal("expected error for missing event_type")
	}
}

func TestEventTopicIsKeyedOnEventTypeOnly(t *testing.T) {
	a := New(MatchCreated, "match", "1", nil, "")
	b := New(MatchCreated, "campaign", "2", nil, "")
	if a.Topic() != b.Topic() {
		t.Fatalf("expected identical topics for same event type, got %q and %q", a.Topic(), b.Topic())
	}
	if a.Topic() != "pipeline.match_created" {
		t.Fatalf("unexpected topic: %q", a.Topic())
	}
}

func TestEventDefaultsSourceToSystem(t *testing.T) {
	evt := New(VettingCompleted, "match", "5", nil, "")
	if evt.Source != "system" {
		t.Fatalf("expected default source 'system', got %q", evt.Source)
	}
}

func TestBusPublishDeliversToSubscriber(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	if err := bus.Subscribe(ctx, MatchCreated, "test-handler", func(_ context.Context, evt Event) error {
		received <- evt
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	evt := New(MatchCreated, "match", "99", map[string]any{"campaign_id": "abc"}, "match_creator")
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.EntityID != "99" {
			t.Fatalf("expected entity_id 99, got %q", got.EntityID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler delivery")
	}
}

func TestBusPublishRejectsInvalidEvent(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	err := bus.Publish(context.Background(), Event{EventType: MatchCreated})
	if err == nil {
		t.Fatal("expected error for invalid event")
	}
}

func TestBusOneHandlerFailureDoesNotBlockAnother(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	succeeded := false

	_ = bus.Subscribe(ctx, VettingCompleted, "failing-handler", func(_ context.Context, _ Event) error {
		return context.DeadlineExceeded
	})
	_ = bus.Subscribe(ctx, VettingCompleted, "succeeding-handler", func(_ context.Context, _ Event) error {
		succeeded = true
		wg.Done()
		return nil
	})

	evt := New(VettingCompleted, "match", "7", nil, "")
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if !succeeded {
			t.Fatal("expected succeeding handler to run")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for succeeding handler")
	}
}

func TestBusHistoryReturnsRecentEventsFilteredByType(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx := context.Background()
	_ = bus.Publish(ctx, New(MatchCreated, "match", "1", nil, ""))
	_ = bus.Publish(ctx, New(VettingCompleted, "match", "2", nil, ""))
	_ = bus.Publish(ctx, New(MatchCreated, "match", "3", nil, ""))

	all := bus.History(10, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(all))
	}

	onlyMatches := bus.History(10, MatchCreated)
	if len(onlyMatches) != 2 {
		t.Fatalf("expected 2 match_created entries, got %d", len(onlyMatches))
	}
	if onlyMatches[len(onlyMatches)-1].EntityID != "3" {
		t.Fatalf("expected most recent match_created entity_id 3, got %s", onlyMatches[len(onlyMatches)-1].EntityID)
	}
}

func TestBusHistoryTrimsToMaxHistory(t *testing.T) {
	bus := New(nil)
	defer bus.Close()

	ctx := context.Background()
	for i := 0; i < maxHistory+10; i++ {
		_ = bus.Publish(ctx, New(MatchCreated, "match", "x", nil, ""))
	}

	if got := len(bus.History(0, "")); got != maxHistory {
		t.Fatalf("expected history capped at %d, got %d", maxHistory, got)
	}
}
