// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package vetting

import (
	"context"
	"fmt"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// EventPublisher is the narrow boundary used to announce a completed
// vetting pass.
type EventPublisher interface {
	PublishVettingCompleted(ctx context.Context, evt VettingCompletedEvent) error
}

// VettingCompletedEvent is published once a discovery's vetting result
// has been persisted, whether or not it passed the threshold. A pass that
// ends in an error publishes nothing.
type VettingCompletedEvent struct {
	DiscoveryID int64
	Score       int
	Passed      bool
}

// Orchestrator owns persistence around the pure Agent: it claims work,
// loads the campaign/media context the agent needs, and writes the result
// (or the failure) back. This is the only place in the package that
// touches the store, per spec.md §4.5's "the agent must not mutate the
// store directly" rule.
type Orchestrator struct {
	Store     *store.Store
	Agent     *Agent
	Events    EventPublisher
	Threshold int
}

// ProcessBatch claims up to limit discoveries ready for vetting and vets
// each independently.
func (o *Orchestrator) ProcessBatch(ctx context.Context, limit int) (int, error) {
	start := time.Now()
	batch, err := o.Store.AcquireVettingBatch(ctx, limit)
	if err != nil {
		return 0, err
	}
	metrics.RecordStageBatch("vetting", len(batch))

	processed := 0
	for _, d := range batch {
		if err := o.processOne(ctx, d); err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("vetting failed")
			continue
		}
		processed++
	}
	metrics.RecordStageRun("vetting", time.Since(start), processed, nil)
	return processed, nil
}

func (o *Orchestrator) processOne(ctx context.Context, d store.Discovery) error {
	campaign, err := o.Store.GetCampaign(ctx, d.CampaignID)
	if err != nil || campaign == nil {
		return o.fail(ctx, d.ID, "failed to load campaign context")
	}
	media, err := o.Store.GetMedia(ctx, d.MediaID)
	if err != nil || media == nil {
		return o.fail(ctx, d.ID, "failed to load media context")
	}
	episodes, err := o.Store.ListRecentEpisodes(ctx, d.MediaID, 5)
	if err != nil {
		return o.fail(ctx, d.ID, "failed to load recent episodes")
	}

	profile := ExtractClientProfile(campaign)
	evidence := Evidence(media, episodes)

	result, err := o.Agent.Vet(ctx, profile, evidence)
	if err != nil {
		return o.fail(ctx, d.ID, err.Error())
	}

	criteriaMet := map[string]any{"checklist": result.Checklist}
	criteriaScores := make([]store.VettingCriterionScore, 0, len(result.CriteriaScores))
	weights := make(map[string]int, len(result.Checklist))
	for _, c := range result.Checklist {
		weights[c.Criterion] = c.Weight
	}
	for _, s := range result.CriteriaScores {
		weight, ok := weights[s.Criterion]
		if !ok {
			weight = 1
		}
		criteriaScores = append(criteriaScores, store.VettingCriterionScore{
			Criterion: s.Criterion,
			Score:     float64(s.Score),
			Weight:    float64(weight),
			Reasoning: s.Justification,
		})
	}

	if err := o.Store.UpdateVettingResults(ctx, d.ID, result.Score, result.Reasoning, criteriaMet,
		result.TopicMatchAnalysis, criteriaScores, result.ClientExpertiseMatched); err != nil {
		return err
	}

	if o.Events != nil {
		evt := VettingCompletedEvent{DiscoveryID: d.ID, Score: result.Score, Passed: result.Score >= o.Threshold}
		if err := o.Events.PublishVettingCompleted(ctx, evt); err != nil {
			logging.Warn().Err(err).Int64("discovery_id", d.ID).Msg("publish vetting completed failed")
		}
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, discoveryID int64, msg string) error {
	if err := o.Store.UpdateVettingStatus(ctx, discoveryID, store.VettingFailed, &msg); err != nil {
		logging.Warn().Err(err).Int64("discovery_id", discoveryID).Msg("failed to record vetting failure")
	}
	return fmt.Errorf("%s", msg)
}
