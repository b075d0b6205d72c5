// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package controller implements the Auto-Discovery Controller (C8): the
// state machine that drives a campaign through
// disabled→pending→running→{completed|paused|error}→pending, fetching
// podcasts for its keywords and inline-running the enrichment, vetting,
// and match-creation pipeline against whatever it finds, within a
// per-campaign budget and runtime cap.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/patrhick1/pgl-pipeline/internal/discovery"
	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

const (
	// MaxRuntime bounds a single campaign's auto-discovery run.
	MaxRuntime = 1500 * time.Second

	// HeartbeatInterval is how often a running campaign's heartbeat is
	// refreshed so the stuck-run recovery sweep doesn't reclaim it.
	HeartbeatInterval = 30 * time.Second

	// StuckMinutes is how long a running campaign may go without a
	// heartbeat before it's considered stuck and reset to pending.
	StuckMinutes = 5

	// ErrorRetryMinutes is how long an errored campaign must wait before
	// it becomes eligible for retry.
	ErrorRetryMinutes = 120

	// CandidatesPerSweep bounds how many campaigns one sweep processes.
	CandidatesPerSweep = 10

	// PipelineBatchSize bounds how many discoveries each of the inline
	// enrichment/vetting/match passes processes per iteration.
	PipelineBatchSize = 50

	// KeywordBatchSize documents the original catalog's per-batch
	// progress granularity; internal/discovery.Fetcher already iterates
	// a campaign's keywords internally in one call, so this constant is
	// retained for parity but isn't used to slice a keyword list here.
	KeywordBatchSize = 5
)

// DiscoveryRunner is the narrow seam onto the Discovery Fetcher (C3).
type DiscoveryRunner interface {
	Run(ctx context.Context, campaignID uuid.UUID, maxDiscoveries int) (discovery.Result, error)
}

// BatchRunner is satisfied by the enrichment, vetting, and match-creation
// orchestrators' identical ProcessBatch shape.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, limit int) (int, error)
}

// EventPublisher announces campaign-level auto-discovery outcomes.
type EventPublisher interface {
	PublishAutoDiscoveryCompleted(ctx context.Context, evt CompletedEvent) error
}

// CompletedEvent is published once a campaign's auto-discovery run
// reaches a terminal status.
type CompletedEvent struct {
	CampaignID         uuid.UUID
	Status             string
	DiscoveriesCreated int
	MatchesCreated     int
}

// Controller drives the auto-discovery state machine across campaigns.
type Controller struct {
	Store      *store.Store
	Discovery  DiscoveryRunner
	Enrichment BatchRunner
	Vetting    BatchRunner
	Match      BatchRunner
	Events     EventPublisher

	MaxDiscoveriesPerRun int
	FreeWeeklyAllowance  int
}

// Sweep is the scheduler's entry point: it recovers stuck/stale runs,
// then processes every campaign currently ready for auto-discovery.
func (c *Controller) Sweep(ctx context.Context) error {
	recovered, err := c.Store.RecoverStuckAutoDiscoveryRuns(ctx, StuckMinutes, ErrorRetryMinutes)
	if err != nil {
		return fmt.Errorf("controller: recover stuck runs: %w", err)
	}
	if recovered > 0 {
		logging.Warn().Int("count", recovered).Msg("recovered stuck auto-discovery runs")
	}

	campaigns, err := c.Store.CampaignsReadyForAutoDiscovery(ctx, CandidatesPerSweep)
	if err != nil {
		return fmt.Errorf("controller: load ready campaigns: %w", err)
	}
	logging.Info().Int("count", len(campaigns)).Msg("auto-discovery sweep found ready campaigns")

	for _, campaign := range campaigns {
		if err := c.processCampaign(ctx, campaign); err != nil {
			logging.Warn().Err(err).Str("campaign_id", campaign.ID.String()).Msg("auto-discovery campaign processing failed")
		}
	}
	return nil
}

func (c *Controller) processCampaign(ctx context.Context, campaign store.Campaign) error {
	runCtx, cancel := context.WithTimeout(ctx, MaxRuntime)
	defer cancel()

	runID, err := c.Store.StartAutoDiscoveryRun(runCtx, campaign.ID)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	var (
		discoveriesCreated int
		matchesCreated     int
	)

	heartbeatDone := make(chan struct{})
	go c.heartbeatLoop(runCtx, runID, heartbeatDone, &discoveriesCreated, &matchesCreated)
	defer close(heartbeatDone)

	start := time.Now()
	status, err := c.runDiscoveryPipeline(runCtx, campaign, &discoveriesCreated, &matchesCreated)
	metrics.RecordStageRun("auto_discovery_controller", time.Since(start), matchesCreated, err)

	if err != nil {
		msg := err.Error()
		if finishErr := c.Store.FinishAutoDiscoveryRun(ctx, runID, "error", &msg); finishErr != nil {
			logging.Warn().Err(finishErr).Msg("failed to record auto-discovery error status")
		}
		c.publish(ctx, campaign.ID, "error", discoveriesCreated, matchesCreated)
		return err
	}

	if finishErr := c.Store.FinishAutoDiscoveryRun(ctx, runID, status, nil); finishErr != nil {
		logging.Warn().Err(finishErr).Msg("failed to record auto-discovery final status")
	}
	c.publish(ctx, campaign.ID, status, discoveriesCreated, matchesCreated)
	return nil
}

func (c *Controller) heartbeatLoop(ctx context.Context, runID int64, done <-chan struct{}, discoveries, matches *int) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Store.HeartbeatAutoDiscoveryRun(ctx, runID, *discoveries, *matches); err != nil {
				logging.Warn().Err(err).Int64("run_id", runID).Msg("heartbeat update failed")
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runDiscoveryPipeline fetches podcasts for the campaign's keywords, then
// drives enrichment, vetting, and match creation inline until no
// pipeline stage makes further progress in a pass. The returned status is
// "paused" when the reloaded campaign's weekly match quota is exhausted,
// otherwise "completed".
func (c *Controller) runDiscoveryPipeline(ctx context.Context, campaign store.Campaign, discoveriesCreated, matchesCreated *int) (string, error) {
	result, err := c.Discovery.Run(ctx, campaign.ID, c.maxDiscoveries())
	if err != nil {
		return "", fmt.Errorf("discovery run: %w", err)
	}
	*discoveriesCreated = result.DiscoveriesCreated

	if result.DiscoveriesCreated == 0 && result.MediaTouched == 0 {
		return "completed", nil
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		enriched, err := c.Enrichment.ProcessBatch(ctx, PipelineBatchSize)
		if err != nil {
			return "", fmt.Errorf("enrichment pass: %w", err)
		}
		vetted, err := c.Vetting.ProcessBatch(ctx, PipelineBatchSize)
		if err != nil {
			return "", fmt.Errorf("vetting pass: %w", err)
		}
		created, err := c.Match.ProcessBatch(ctx, PipelineBatchSize)
		if err != nil {
			return "", fmt.Errorf("match pass: %w", err)
		}
		*matchesCreated += created

		if enriched == 0 && vetted == 0 && created == 0 {
			break
		}
	}

	refreshed, err := c.Store.GetCampaign(ctx, campaign.ID)
	if err != nil {
		return "", fmt.Errorf("reload campaign: %w", err)
	}
	if refreshed != nil && c.quotaExhausted(*refreshed) {
		return "paused", nil
	}
	return "completed", nil
}

// quotaExhausted decides the campaign's display status (paused vs
// completed) by re-checking the same free-plan allowance
// store.IncrementMatchCountTx enforces atomically at match-creation time
// — that call is the real enforcement point; this is only cosmetic.
func (c *Controller) quotaExhausted(campaign store.Campaign) bool {
	if campaign.PlanTier != "free" {
		return false
	}
	allowance := c.FreeWeeklyAllowance
	if allowance <= 0 {
		allowance = 3
	}
	return campaign.MatchesCreatedThisWeek >= allowance
}

func (c *Controller) maxDiscoveries() int {
	if c.MaxDiscoveriesPerRun > 0 {
		return c.MaxDiscoveriesPerRun
	}
	return 20
}

func (c *Controller) publish(ctx context.Context, campaignID uuid.UUID, status string, discoveriesCreated, matchesCreated int) {
	if c.Events == nil {
		return
	}
	evt := CompletedEvent{
		CampaignID:         campaignID,
		Status:             status,
		DiscoveriesCreated: discoveriesCreated,
		MatchesCreated:     matchesCreated,
	}
	if err := c.Events.PublishAutoDiscoveryCompleted(ctx, evt); err != nil {
		logging.Warn().Err(err).Str("campaign_id", campaignID.String()).Msg("publish auto-discovery completed failed")
	}
}
