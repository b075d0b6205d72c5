// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package rssmeta fetches the contact email fallback from a podcast's RSS
// feed when a directory adapter didn't return one. Directory search results
// frequently omit a contact address; the feed's own <managingEditor>,
// <webMaster>, or <itunes:owner>/<itunes:email> elements often carry it.
package rssmeta

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FetchTimeout bounds a single feed download.
const FetchTimeout = 10 * time.Second

// ErrNoContactEmail indicates the feed parsed cleanly but none of its
// contact-ish elements carried an email address.
var ErrNoContactEmail = errors.New("rssmeta: feed has no contact email")

type itunesOwner struct {
	Email string `xml:"email"`
}

type channel struct {
	ManagingEditor string      `xml:"managingEditor"`
	WebMaster      string      `xml:"webMaster"`
	ItunesOwner    itunesOwner `xml:"owner"`
}

type rss struct {
	Channel channel `xml:"channel"`
}

// FetchContactEmail downloads rssURL and extracts the first usable contact
// email from the feed's channel metadata, preferring <itunes:owner><itunes:email>,
// then <managingEditor>, then <webMaster> — the same precedence used when a
// human skims a feed for an outreach address.
func FetchContactEmail(ctx context.Context, client *http.Client, rssURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rssURL, nil)
	if err != nil {
		return "", fmt.Errorf("rssmeta: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rssmeta: fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rssmeta: feed returned status %d", resp.StatusCode)
	}

	var doc rss
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("rssmeta: parse feed: %w", err)
	}

	if email := extractEmail(doc.Channel.ItunesOwner.Email); email != "" {
		return email, nil
	}
	if email := extractEmail(doc.Channel.ManagingEditor); email != "" {
		return email, nil
	}
	if email := extractEmail(doc.Channel.WebMaster); email != "" {
		return email, nil
	}
	return "", ErrNoContactEmail
}

// extractEmail pulls the address out of RSS fields that are sometimes a bare
// email and sometimes "email (Display Name)" per the RSS 2.0 convention.
func extractEmail(field string) string {
	field = strings.TrimSpace(field)
	if field == "" {
		return ""
	}
	if idx := strings.IndexByte(field, ' '); idx != -1 {
		field = field[:idx]
	}
	if !strings.Contains(field, "@") {
		return ""
	}
	return field
}
