// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package match implements the Match Creator (C6): once a discovery clears
// vetting above the campaign's match threshold, it turns that into a
// MatchSuggestion plus a pending review task, inside a single store
// transaction, per spec.md §4.6.
package match

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// RecentEpisodeWindow bounds how many of a media's most recent embedded
// episodes are considered for the best-episode similarity search.
const RecentEpisodeWindow = 20

// EventPublisher is the narrow boundary used to announce a newly created
// match, and to replay the vetting completion of the same discovery.
type EventPublisher interface {
	PublishMatchCreated(ctx context.Context, evt MatchCreatedEvent) error
	PublishVettingCompleted(ctx context.Context, evt VettingCompletedEvent) error
}

// MatchCreatedEvent is published once a match suggestion and its review
// task both exist.
type MatchCreatedEvent struct {
	DiscoveryID       int64
	MatchSuggestionID int64
	CampaignID        string
	MediaID           int64
}

// VettingCompletedEvent mirrors internal/vetting's event of the same name;
// the match creator re-publishes it for every match it creates, so
// subscribers that missed the vetting agent's own event (e.g. after a
// crash recovery replay) still receive it.
type VettingCompletedEvent struct {
	DiscoveryID int64
	Score       int
	Passed      bool
}

// Creator turns vetted, unmatched discoveries into match suggestions and
// review tasks.
type Creator struct {
	Store               *store.Store
	Events              EventPublisher
	MatchThreshold      int
	FreeWeeklyAllowance int
}

// ProcessBatch finds up to limit discoveries ready for match creation and
// creates a match for each, independently.
func (c *Creator) ProcessBatch(ctx context.Context, limit int) (int, error) {
	start := time.Now()
	batch, err := c.Store.DiscoveriesReadyForMatch(ctx, c.MatchThreshold, limit)
	if err != nil {
		return 0, err
	}
	metrics.RecordStageBatch("match_creation", len(batch))

	created := 0
	for _, d := range batch {
		ok, err := c.createOne(ctx, d)
		if err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("match creation failed")
			continue
		}
		if ok {
			created++
		}
	}
	metrics.RecordStageRun("match_creation", time.Since(start), created, nil)
	return created, nil
}

// createOne runs spec.md §4.6's six steps inside a single transaction.
// It returns (false, nil) when the campaign's free-plan quota blocks the
// match (not an error — just nothing to do this round).
func (c *Creator) createOne(ctx context.Context, d store.Discovery) (bool, error) {
	var (
		matchID      int64
		reviewTaskID int64
		created      bool
	)

	err := c.Store.WithTx(ctx, func(tx pgx.Tx) error {
		ok, err := c.Store.IncrementMatchCountTx(ctx, tx, d.CampaignID, c.FreeWeeklyAllowance)
		if err != nil {
			return err
		}
		if !ok {
			logging.Info().Str("campaign_id", d.CampaignID.String()).Msg("match creation skipped: weekly quota exhausted")
			return nil
		}

		bestEpisodeID, similarityScore, err := c.bestMatchingEpisode(ctx, d.CampaignID, d.MediaID)
		if err != nil {
			return err
		}

		matchID, err = c.Store.InsertMatchSuggestion(ctx, tx, d.CampaignID, d.MediaID, bestEpisodeID, similarityScore, d.VettingScore)
		if err != nil {
			return err
		}
		if err := c.Store.MarkMatchCreatedTx(ctx, tx, d.ID, matchID); err != nil {
			return err
		}

		reviewTaskID, err = c.Store.InsertReviewTask(ctx, tx, "match_suggestion", d.CampaignID, &d.ID, &matchID)
		if err != nil {
			return err
		}
		if err := c.Store.MarkReviewTaskCreatedTx(ctx, tx, d.ID, reviewTaskID); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	if c.Events != nil {
		if err := c.Events.PublishMatchCreated(ctx, MatchCreatedEvent{
			DiscoveryID:       d.ID,
			MatchSuggestionID: matchID,
			CampaignID:        d.CampaignID.String(),
			MediaID:           d.MediaID,
		}); err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("publish match created failed")
		}
		if err := c.Events.PublishVettingCompleted(ctx, VettingCompletedEvent{
			DiscoveryID: d.ID,
			Score:       derefScore(d.VettingScore),
			Passed:      derefScore(d.VettingScore) >= c.MatchThreshold,
		}); err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("publish vetting completed (replay) failed")
		}
	}
	return true, nil
}

// bestMatchingEpisode picks the media episode whose embedding is most
// cosine-similar to the campaign's embedding, among up to
// RecentEpisodeWindow recent embedded episodes, breaking ties by publish
// date (the query already orders newest first, so the first max found
// wins ties). Returns (nil, nil) if the campaign has no embedding or the
// media has no embedded episodes.
func (c *Creator) bestMatchingEpisode(ctx context.Context, campaignID uuid.UUID, mediaID int64) (*int64, *float64, error) {
	campaign, err := c.Store.GetCampaign(ctx, campaignID)
	if err != nil || campaign == nil || len(campaign.Embedding) == 0 {
		return nil, nil, err
	}

	episodes, err := c.Store.ListEpisodesWithEmbeddings(ctx, mediaID, RecentEpisodeWindow)
	if err != nil {
		return nil, nil, err
	}
	if len(episodes) == 0 {
		return nil, nil, nil
	}

	bestScore := -1.0
	var bestID *int64
	for _, ep := range episodes {
		if len(ep.Embedding) == 0 {
			continue
		}
		sim := cosineSimilarity(campaign.Embedding, ep.Embedding)
		if sim > bestScore {
			bestScore = sim
			id := ep.ID
			bestID = &id
		}
	}
	if bestID == nil {
		return nil, nil, nil
	}
	return bestID, &bestScore, nil
}

// cosineSimilarity mirrors the original match creator's
// cosine_similarity: dot product over the product of norms, zero on any
// degenerate input rather than NaN or a divide-by-zero panic.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

func derefScore(s *int) int {
	if s == nil {
		return 0
	}
	return *s
}
