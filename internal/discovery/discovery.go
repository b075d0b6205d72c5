// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package discovery implements the Discovery Fetcher (C3): for each of a
// campaign's keywords, it queries every enabled directory adapter,
// canonicalizes and upserts the podcasts it finds into the shared media
// inventory, and records a budgeted set of campaign_media_discoveries rows
// for whichever ones are new to that campaign.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/patrhick1/pgl-pipeline/internal/adapters"
	"github.com/patrhick1/pgl-pipeline/internal/adapters/rssmeta"
	"github.com/patrhick1/pgl-pipeline/internal/llm"
	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// EventPublisher is the narrow boundary the fetcher uses to announce newly
// recorded discoveries. Concrete wiring (the Watermill-backed event bus,
// C9) is supplied by the caller.
type EventPublisher interface {
	PublishMediaDiscovered(ctx context.Context, evt MediaDiscoveredEvent) error
}

// MediaDiscoveredEvent is published once per newly-inserted discovery row.
type MediaDiscoveredEvent struct {
	CampaignID uuid.UUID
	MediaID    int64
	MediaName  string
	Keyword    string
}

// Result summarizes one fetcher run for the caller (scheduler task log,
// auto-discovery controller's run record).
type Result struct {
	MediaTouched       int
	DiscoveriesCreated int
}

// Fetcher is the Discovery Fetcher. Adapters is keyed by adapter name and
// represents the campaign's enabled directory sources; the map's contents
// are the caller's concern (plan-tier gating, per-campaign configuration).
type Fetcher struct {
	Store      *store.Store
	Adapters   map[string]adapters.Adapter
	LLM        llm.Client
	HTTPClient *http.Client
	Events     EventPublisher
	PageSize   int
	MaxPages   int // safety bound on pagination per (keyword, adapter)
}

type candidateEntry struct {
	mediaID   int64
	mediaName string
	keyword   string
}

// Run executes one discovery pass for a campaign, stopping once
// maxDiscoveries new discovery rows have been created.
func (f *Fetcher) Run(ctx context.Context, campaignID uuid.UUID, maxDiscoveries int) (Result, error) {
	start := time.Now()
	var result Result
	err := f.run(ctx, campaignID, maxDiscoveries, &result)
	metrics.RecordStageRun("discovery", time.Since(start), result.DiscoveriesCreated, err)
	return result, err
}

func (f *Fetcher) run(ctx context.Context, campaignID uuid.UUID, maxDiscoveries int, result *Result) error {
	campaign, err := f.Store.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("discovery: load campaign %s: %w", campaignID, err)
	}
	if campaign == nil {
		return fmt.Errorf("discovery: campaign %s not found", campaignID)
	}

	adapterNames := make([]string, 0, len(f.Adapters))
	for name := range f.Adapters {
		adapterNames = append(adapterNames, name)
	}
	sort.Strings(adapterNames)

	seenInRun := make(map[string]bool)
	candidates := make(map[int64]candidateEntry)
	var candidateOrder []int64

	for _, keyword := range campaign.AutoDiscoveryKeywords {
		for _, adapterName := range adapterNames {
			adapter := f.Adapters[adapterName]

			taxonomies, err := adapter.Taxonomies(ctx)
			if err != nil {
				logging.Warn().Err(err).Str("adapter", adapterName).Msg("failed to load adapter taxonomies, skipping")
				continue
			}

			taxonomyIDs, err := f.mapKeywordToTaxonomies(ctx, keyword, adapterName, taxonomies)
			if err != nil {
				logging.Warn().Err(err).Str("adapter", adapterName).Str("keyword", keyword).
					Msg("keyword taxonomy mapping failed, skipping adapter for this keyword")
				continue
			}
			if len(taxonomyIDs) == 0 {
				continue
			}

			if err := f.fetchKeywordFromAdapter(ctx, adapter, keyword, seenInRun, candidates, &candidateOrder); err != nil {
				logging.Warn().Err(err).Str("adapter", adapterName).Str("keyword", keyword).Msg("adapter fetch failed")
			}
		}
	}

	result.MediaTouched = len(candidateOrder)

	for _, mediaID := range candidateOrder {
		if result.DiscoveriesCreated >= maxDiscoveries {
			break
		}
		entry := candidates[mediaID]
		d, isNew, err := f.Store.CreateOrGetDiscovery(ctx, campaignID, mediaID, entry.keyword)
		if err != nil {
			logging.Warn().Err(err).Int64("media_id", mediaID).Msg("create or get discovery failed")
			continue
		}
		if !isNew {
			continue
		}
		result.DiscoveriesCreated++

		if f.Events != nil {
			if err := f.Events.PublishMediaDiscovered(ctx, MediaDiscoveredEvent{
				CampaignID: campaignID,
				MediaID:    mediaID,
				MediaName:  entry.mediaName,
				Keyword:    entry.keyword,
			}); err != nil {
				logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("publish media discovered failed")
			}
		}
	}

	return nil
}

// fetchKeywordFromAdapter paginates one (keyword, adapter) pair, filtering,
// canonicalizing, and upserting every qualifying record into candidates.
func (f *Fetcher) fetchKeywordFromAdapter(ctx context.Context, adapter adapters.Adapter, keyword string, seenInRun map[string]bool, candidates map[int64]candidateEntry, candidateOrder *[]int64) error {
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}

	for page := 0; page < maxPages; page++ {
		results, err := adapter.Search(ctx, keyword, page, f.PageSize)
		if err != nil {
			return fmt.Errorf("search page %d: %w", page, err)
		}
		if len(results) == 0 {
			return nil
		}

		for _, rec := range results {
			f.processRecord(ctx, rec, keyword, seenInRun, candidates, candidateOrder)
		}

		if len(results) < f.PageSize {
			return nil
		}
	}
	return nil
}

func (f *Fetcher) processRecord(ctx context.Context, rec adapters.SearchResult, keyword string, seenInRun map[string]bool, candidates map[int64]candidateEntry, candidateOrder *[]int64) {
	dedupeKey := rec.ExternalID
	if dedupeKey == "" {
		dedupeKey = rec.RSSURL
	}
	if dedupeKey == "" {
		return
	}
	if seenInRun[dedupeKey] {
		return
	}
	seenInRun[dedupeKey] = true

	email := rec.ContactEmail
	if email == "" && rec.RSSURL != "" {
		discovered, err := rssmeta.FetchContactEmail(ctx, f.HTTPClient, rec.RSSURL)
		if err == nil {
			email = discovered
		}
	}
	if email == "" {
		return
	}

	existingID, err := f.canonicalize(ctx, rec)
	if err != nil {
		logging.Warn().Err(err).Str("rss_url", rec.RSSURL).Msg("canonicalization lookup failed")
		return
	}

	media, err := f.Store.UpsertMedia(ctx, existingID, store.Media{
		Name:     rec.Name,
		RSSURL:   nilIfEmpty(rec.RSSURL),
		ItunesID: nilIfEmpty(rec.ItunesID),
		ImageURL: nilIfEmpty(rec.ImageURL),
	})
	if err != nil {
		logging.Warn().Err(err).Str("name", rec.Name).Msg("upsert media failed")
		return
	}

	if existingID == nil {
		go f.scheduleEpisodeFetch(media.ID, rec.RSSURL)
	}

	if _, ok := candidates[media.ID]; !ok {
		candidates[media.ID] = candidateEntry{mediaID: media.ID, mediaName: media.Name, keyword: keyword}
		*candidateOrder = append(*candidateOrder, media.ID)
	}
}

// canonicalize resolves rec against the media inventory by RSS URL first,
// then by iTunes id, returning the existing row's id when a match exists.
func (f *Fetcher) canonicalize(ctx context.Context, rec adapters.SearchResult) (*int64, error) {
	if rec.RSSURL != "" {
		m, err := f.Store.FindMediaByRSS(ctx, rec.RSSURL)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return &m.ID, nil
		}
	}
	if rec.ItunesID != "" {
		m, err := f.Store.FindMediaByItunesID(ctx, rec.ItunesID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return &m.ID, nil
		}
	}
	return nil, nil
}

// scheduleEpisodeFetch fires a non-blocking "fetch N latest episodes" pass
// for newly created media. Failure here never aborts discovery: the
// enrichment orchestrator (C4) retries episode ingestion on its own cadence.
func (f *Fetcher) scheduleEpisodeFetch(mediaID int64, rssURL string) {
	if rssURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, adapter := range f.Adapters {
		episodes, err := adapter.ListEpisodes(ctx, rssURL, 5)
		if err != nil || len(episodes) == 0 {
			continue
		}
		for _, ep := range episodes {
			e := store.Episode{
				MediaID:        mediaID,
				Title:          ep.Title,
				PublishDate:    parsePublishDate(ep.PublishedAt),
				EpisodeSummary: nilIfEmpty(ep.Summary),
				AudioURL:       nilIfEmpty(ep.AudioURL),
			}
			if _, err := f.Store.UpsertEpisode(ctx, e); err != nil {
				logging.Warn().Err(err).Int64("media_id", mediaID).Str("title", ep.Title).Msg("episode upsert failed")
			}
		}
		return
	}
}

type taxonomyMappingResponse struct {
	TaxonomyIDs []string `json:"taxonomy_ids"`
}

var taxonomyMappingSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"taxonomy_ids": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["taxonomy_ids"]
}`)

// mapKeywordToTaxonomies asks the LLM which of an adapter's taxonomy ids
// apply to keyword, per spec.md §4.3 step 1. An empty result means this
// adapter should be skipped for this keyword.
func (f *Fetcher) mapKeywordToTaxonomies(ctx context.Context, keyword, adapterName string, available []string) ([]string, error) {
	if len(available) == 0 {
		return nil, nil
	}

	raw, err := f.LLM.SchemaCall(ctx, llm.SchemaRequest{
		Purpose:      "keyword_taxonomy_mapping",
		SystemPrompt: "You map a podcast search keyword to relevant directory taxonomy ids. Only return ids from the provided list.",
		UserPrompt:   fmt.Sprintf("Adapter: %s\nKeyword: %q\nAvailable taxonomy ids: %v", adapterName, keyword, available),
		Schema:       taxonomyMappingSchema,
	})
	if err != nil {
		return nil, err
	}

	var resp taxonomyMappingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal taxonomy mapping response: %w", err)
	}

	allowed := make(map[string]bool, len(available))
	for _, id := range available {
		allowed[id] = true
	}
	out := make([]string, 0, len(resp.TaxonomyIDs))
	for _, id := range resp.TaxonomyIDs {
		if allowed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parsePublishDate tries the date formats directory feeds actually use
// (RFC 1123 with zone, then RFC 3339), returning nil rather than erroring
// on anything else since a missing publish date never blocks ingestion.
func parsePublishDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
