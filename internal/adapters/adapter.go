// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package adapters defines the outbound podcast-directory interface (C2):
// a uniform Search/LookupByRSS/LookupByItunesID/ListEpisodes contract that
// every concrete directory client (ListenNotes, PodcastIndex, Apple
// Podcasts, ...) implements, plus the circuit-breaker and rate-limiting
// wrapper shared by all of them.
package adapters

import "context"

// SearchResult is one directory hit for a keyword search.
type SearchResult struct {
	Name         string
	RSSURL       string
	ItunesID     string
	ImageURL     string
	HostNames    []string
	ExternalID   string // source-specific catalog id, for dedup within a run
	ContactEmail string // business contact email, when the directory exposes one directly
}

// EpisodeResult is one episode returned by ListEpisodes.
type EpisodeResult struct {
	Title       string
	PublishedAt string
	Summary     string
	AudioURL    string // enclosure URL, needed by the transcription step
}

// Adapter is the contract every podcast-directory client satisfies. Every
// method takes a context so callers can apply the per-task wall-clock
// budget (SPEC_FULL.md §5: ~30s outbound timeouts for adapters, 10s for
// RSS) regardless of which directory is being queried.
type Adapter interface {
	// Name identifies the adapter for logging, metrics, and circuit
	// breaker labeling.
	Name() string

	// Search finds podcasts matching a keyword, one page of up to pageSize
	// results at a time (0-based page). Callers paginate by incrementing
	// page until a result shorter than pageSize (or empty) comes back.
	Search(ctx context.Context, keyword string, page, pageSize int) ([]SearchResult, error)

	// Taxonomies returns this adapter's category/genre id strings, used by
	// the discovery fetcher's keyword-to-taxonomy LLM mapping step.
	Taxonomies(ctx context.Context) ([]string, error)

	// LookupByRSS resolves directory metadata for a known RSS feed URL.
	LookupByRSS(ctx context.Context, rssURL string) (*SearchResult, error)

	// LookupByItunesID resolves directory metadata for a known Apple
	// Podcasts (iTunes) catalog id.
	LookupByItunesID(ctx context.Context, itunesID string) (*SearchResult, error)

	// ListEpisodes returns the most recent episodes for a feed.
	ListEpisodes(ctx context.Context, rssURL string, limit int) ([]EpisodeResult, error)
}
