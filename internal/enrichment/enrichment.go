// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package enrichment implements the Enrichment Orchestrator (C4): it
// hydrates a discovered podcast's profile, ingests and transcribes recent
// episodes, compiles their summaries, and generates an AI description and
// deterministic quality score for media that qualify.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/adapters"
	"github.com/patrhick1/pgl-pipeline/internal/llm"
	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
	"github.com/patrhick1/pgl-pipeline/internal/store"
	"github.com/patrhick1/pgl-pipeline/internal/transcribe"
)

// RecentEpisodeCount is the top-K most recent episodes the orchestrator
// ensures exist for a media, per spec.md §4.4 step 2.
const RecentEpisodeCount = 5

// MaxTranscriptionsPerPass bounds how many untranscribed episodes a single
// enrichment pass will transcribe, to keep per-discovery cost predictable.
const MaxTranscriptionsPerPass = 3

// MinTranscribedForQualityScore is the quality-score gate from spec.md
// §4.4 step 5.
const MinTranscribedForQualityScore = 3

// EventPublisher is the narrow boundary used to announce a completed
// enrichment pass.
type EventPublisher interface {
	PublishEnrichmentCompleted(ctx context.Context, evt EnrichmentCompletedEvent) error
}

// EnrichmentCompletedEvent is published once a discovery's enrichment pass
// finishes successfully.
type EnrichmentCompletedEvent struct {
	DiscoveryID int64
	MediaID     int64
}

// Orchestrator is the Enrichment Orchestrator.
type Orchestrator struct {
	Store       *store.Store
	Adapters    map[string]adapters.Adapter
	LLM         llm.Client
	Transcriber transcribe.Transcriber
	Events      EventPublisher
}

// ProcessBatch loads up to limit discoveries needing enrichment and
// processes each one independently; one discovery's failure never aborts
// the batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context, limit int) (int, error) {
	start := time.Now()
	discoveries, err := o.Store.DiscoveriesNeedingEnrichment(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("enrichment: load batch: %w", err)
	}
	metrics.RecordStageBatch("enrichment", len(discoveries))

	processed := 0
	for _, d := range discoveries {
		if err := o.processOne(ctx, d); err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("enrichment failed")
			continue
		}
		processed++
	}
	metrics.RecordStageRun("enrichment", time.Since(start), processed, nil)
	return processed, nil
}

func (o *Orchestrator) processOne(ctx context.Context, d store.Discovery) error {
	media, err := o.Store.GetMedia(ctx, d.MediaID)
	if err != nil {
		return fmt.Errorf("load media %d: %w", d.MediaID, err)
	}
	if media == nil {
		return fmt.Errorf("media %d not found", d.MediaID)
	}

	if err := o.run(ctx, d, media); err != nil {
		errMsg := err.Error()
		if setErr := o.Store.UpdateEnrichmentStatus(ctx, d.ID, store.EnrichmentFailed, &errMsg); setErr != nil {
			logging.Warn().Err(setErr).Int64("discovery_id", d.ID).Msg("failed to record enrichment failure")
		}
		return err
	}

	if err := o.Store.UpdateEnrichmentStatus(ctx, d.ID, store.EnrichmentCompleted, nil); err != nil {
		return fmt.Errorf("mark enrichment completed: %w", err)
	}
	if o.Events != nil {
		if err := o.Events.PublishEnrichmentCompleted(ctx, EnrichmentCompletedEvent{DiscoveryID: d.ID, MediaID: d.MediaID}); err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("publish enrichment completed failed")
		}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, d store.Discovery, media *store.Media) error {
	if media.RSSURL == nil {
		return fmt.Errorf("media %d has no rss url, nothing to enrich from", media.ID)
	}

	if err := o.enrichProfile(ctx, media); err != nil {
		return fmt.Errorf("profile enrichment: %w", err)
	}
	if err := o.ingestEpisodes(ctx, media); err != nil {
		return fmt.Errorf("episode ingestion: %w", err)
	}
	if _, err := o.Store.UpdateEpisodeSummariesCompiled(ctx, media.ID); err != nil {
		return fmt.Errorf("compile episode summaries: %w", err)
	}
	if err := o.generateAIDescription(ctx, d, media); err != nil {
		return fmt.Errorf("ai description: %w", err)
	}
	if err := o.computeQualityScore(ctx, media); err != nil {
		return fmt.Errorf("quality score: %w", err)
	}
	return nil
}

// enrichProfile merges host names and confidence from whichever adapter
// resolves this feed's RSS URL — the richest profile fields the Adapter
// contract currently exposes (audience size, language, and ratings are
// left for a future adapter that surfaces them; none in this corpus's
// SearchResult shape does).
func (o *Orchestrator) enrichProfile(ctx context.Context, media *store.Media) error {
	for _, adapter := range o.Adapters {
		rec, err := adapter.LookupByRSS(ctx, *media.RSSURL)
		if err != nil || rec == nil {
			continue
		}
		if len(rec.HostNames) == 0 {
			continue
		}
		confidence := 0.9
		return o.Store.UpdateMediaProfile(ctx, media.ID, rec.HostNames, &confidence, media.TotalEpisodes)
	}
	return nil
}

// ingestEpisodes ensures the top RecentEpisodeCount episodes exist, then
// transcribes up to MaxTranscriptionsPerPass of the ones still missing a
// transcript.
func (o *Orchestrator) ingestEpisodes(ctx context.Context, media *store.Media) error {
	for _, adapter := range o.Adapters {
		results, err := adapter.ListEpisodes(ctx, *media.RSSURL, RecentEpisodeCount)
		if err != nil || len(results) == 0 {
			continue
		}
		for _, ep := range results {
			e := store.Episode{
				MediaID:        media.ID,
				Title:          ep.Title,
				EpisodeSummary: ptrIfNonEmpty(ep.Summary),
				AudioURL:       ptrIfNonEmpty(ep.AudioURL),
			}
			if _, err := o.Store.UpsertEpisode(ctx, e); err != nil {
				logging.Warn().Err(err).Str("title", ep.Title).Int64("media_id", media.ID).Msg("episode upsert failed during enrichment")
			}
		}
		break
	}

	pending, err := o.Store.UntranscribedEpisodes(ctx, media.ID, MaxTranscriptionsPerPass)
	if err != nil {
		return fmt.Errorf("load untranscribed episodes: %w", err)
	}
	for _, ep := range pending {
		if ep.AudioURL == nil {
			continue
		}
		if err := o.transcribeOne(ctx, ep); err != nil {
			logging.Warn().Err(err).Int64("episode_id", ep.ID).Msg("episode transcription failed")
		}
	}
	return nil
}

func (o *Orchestrator) transcribeOne(ctx context.Context, ep store.Episode) error {
	result, err := o.Transcriber.Transcribe(ctx, transcribe.Request{EpisodeID: ep.ID, AudioURL: *ep.AudioURL})
	if err != nil {
		return fmt.Errorf("transcribe episode %d: %w", ep.ID, err)
	}

	summary, err := o.LLM.TextCall(ctx, llm.TextRequest{
		Purpose:      "episode_summary",
		SystemPrompt: "Summarize this podcast episode transcript in 2-3 sentences, noting its main themes and keywords.",
		UserPrompt:   result.RawTranscript,
		MaxTokens:    400,
	})
	if err != nil {
		return fmt.Errorf("summarize episode %d: %w", ep.ID, err)
	}

	return o.Store.UpdateEpisodeTranscript(ctx, ep.ID, summary)
}

// generateAIDescription fills media.ai_description when missing, gated by
// the acquire_ai_description_batch-style lock to prevent duplicate LLM
// spend across concurrent enrichment workers.
func (o *Orchestrator) generateAIDescription(ctx context.Context, d store.Discovery, media *store.Media) error {
	if media.AIDescription != nil && *media.AIDescription != "" {
		return nil
	}

	batch, err := o.Store.AcquireAIDescriptionBatch(ctx, 1)
	if err != nil {
		return fmt.Errorf("acquire ai description lock: %w", err)
	}
	if len(batch) == 0 {
		// Another worker already holds the lock for this discovery, or it
		// no longer needs a description; nothing more to do here.
		return nil
	}
	if batch[0].ID != d.ID {
		// The claim landed on a different discovery: release it unused so
		// it doesn't stay locked until the stale-lock sweep.
		if releaseErr := o.Store.ReleaseAIDescriptionLock(ctx, batch[0].ID, true); releaseErr != nil {
			logging.Warn().Err(releaseErr).Int64("discovery_id", batch[0].ID).Msg("failed to release ai description lock")
		}
		return nil
	}

	description, genErr := o.LLM.TextCall(ctx, llm.TextRequest{
		Purpose: "media_ai_description",
		SystemPrompt: "Write a description of this podcast in no more than 200 words, " +
			"using its original description, recent episode summaries, and hosts.",
		UserPrompt: fmt.Sprintf("Original description: %s\n\nRecent episode summaries:\n%s\n\nHosts: %v",
			media.Description, derefString(media.EpisodeSummariesCompiled), media.HostNames),
		MaxTokens: 300,
	})

	if releaseErr := o.Store.ReleaseAIDescriptionLock(ctx, d.ID, genErr == nil); releaseErr != nil {
		logging.Warn().Err(releaseErr).Int64("discovery_id", d.ID).Msg("failed to release ai description lock")
	}
	if genErr != nil {
		return fmt.Errorf("generate ai description: %w", genErr)
	}

	return o.Store.UpdateMediaAIDescription(ctx, media.ID, description)
}

// computeQualityScore applies a deterministic [0,1] formula once at least
// MinTranscribedForQualityScore episodes have a completed transcript,
// combining host-name confidence (audience-signal proxy) with transcript
// depth (content-depth proxy). The exact weights are this implementation's
// own choice — spec.md §4.4 step 5 leaves the formula open provided it is
// deterministic given its inputs.
func (o *Orchestrator) computeQualityScore(ctx context.Context, media *store.Media) error {
	transcribed, err := o.Store.CountTranscribedEpisodes(ctx, media.ID)
	if err != nil {
		return fmt.Errorf("count transcribed episodes: %w", err)
	}
	if transcribed < MinTranscribedForQualityScore {
		return nil
	}

	audienceSignal := 0.0
	if media.HostNamesConfidence != nil {
		audienceSignal = *media.HostNamesConfidence
	}

	score := qualityScoreFormula(audienceSignal, transcribed)
	return o.Store.UpdateMediaQualityScore(ctx, media.ID, score)
}

// qualityScoreFormula combines an audience-signal proxy (host-name
// extraction confidence) with a content-depth proxy (transcribed episode
// coverage against the top-K window) into a [0,1] score.
func qualityScoreFormula(audienceSignal float64, transcribedEpisodes int) float64 {
	depthSignal := float64(transcribedEpisodes) / float64(RecentEpisodeCount)
	if depthSignal > 1 {
		depthSignal = 1
	}
	return 0.4*audienceSignal + 0.6*depthSignal
}

func ptrIfNonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
