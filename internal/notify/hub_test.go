// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package notify

import (
	"context"
	"testing"
	"time"
)

func testClient(userID, campaignID string) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		key:  groupKey{UserID: userID, CampaignID: campaignID},
		send: make(chan Notification, 4),
	}
}

func TestHubDeliversOnlyToMatchingGroup(t *testing.T) {
	h := NewHub()
	a := testClient("user-1", "camp-1")
	b := testClient("user-2", "camp-2")
	h.addClient(a)
	h.addClient(b)

	h.deliver(targeted{key: groupKey{UserID: "user-1", CampaignID: "camp-1"}, notification: Notification{Type: "x"}})

	select {
	case <-a.send:
	default:
		t.Fatal("expected matching client to receive notification")
	}
	select {
	case <-b.send:
		t.Fatal("expected non-matching client to not receive notification")
	default:
	}
}

func TestHubSendToCampaignReachesEveryUserWatchingIt(t *testing.T) {
	h := NewHub()
	a := testClient("user-1", "camp-shared")
	b := testClient("user-2", "camp-shared")
	c := testClient("user-3", "camp-other")
	h.addClient(a)
	h.addClient(b)
	h.addClient(c)

	h.SendToCampaign("camp-shared", Notification{Type: TypeMatchesReady})

	ctx, cancel := context.WithCancel(context.Background())
	go h.RunWithContext(ctx)
	defer cancel()

	for _, cl := range []*Client{a, b} {
		select {
		case n := <-cl.send:
			if n.Type != TypeMatchesReady {
				t.Fatalf("unexpected notification type %q", n.Type)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for campaign subscriber delivery")
		}
	}

	select {
	case <-c.send:
		t.Fatal("expected unrelated campaign's client to not receive notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubRemoveClientClearsEmptyGroup(t *testing.T) {
	h := NewHub()
	a := testClient("user-1", "camp-1")
	h.addClient(a)
	if len(h.groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(h.groups))
	}

	h.removeClient(a)
	if len(h.groups) != 0 {
		t.Fatalf("expected group removed once empty, got %d", len(h.groups))
	}
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", h.ClientCount())
	}
}

func TestHubDropsSlowClientWithoutBlockingOthers(t *testing.T) {
	h := NewHub()
	slow := testClient("user-1", "camp-1")
	slow.send = make(chan Notification) // unbuffered, no reader: always full
	fast := testClient("user-1", "camp-1")
	h.addClient(slow)
	h.addClient(fast)

	h.deliver(targeted{key: groupKey{UserID: "user-1", CampaignID: "camp-1"}, notification: Notification{Type: "x"}})

	select {
	case <-fast.send:
	default:
		t.Fatal("expected fast client to still receive its notification")
	}
	if h.ClientCount() != 1 {
		t.Fatalf("expected slow client dropped, remaining count %d", h.ClientCount())
	}
}
