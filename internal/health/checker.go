// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package health runs the pipeline's self-repair sweep (C10): a small
// set of idempotent passes that notice and correct the specific kinds
// of drift a long-running worker fleet accumulates — a status flag
// that never advanced after its underlying work actually finished, a
// processing lock left behind by a crashed worker, a transient failure
// that's safe to simply retry. None of these passes invent new work;
// they only unstick rows that are already in a recoverable state.
package health

import (
	"context"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

const (
	summaryCompilationLimit = 50
	stuckEnrichmentMinutes  = 5
	stuckEnrichmentLimit    = 50
	staleLockMinutes        = 60
	failedVettingHours      = 2
	failedVettingLimit      = 20
)

// Checker runs the four repair passes in sequence against Store.
// Satisfies internal/scheduler.WorkflowHealthChecker.
type Checker struct {
	Store *store.Store
}

// passResult mirrors the original health checker's per-pass
// found/fixed accounting, used only for logging here since nothing
// downstream consumes the structured detail the Python version
// returned to its caller.
type passResult struct {
	check string
	found int
	fixed int
}

// RunChecks executes every repair pass and logs a summary. A failure in
// one pass is logged and does not prevent the remaining passes from
// running — a missing-summaries query failing, say, shouldn't leave
// stale locks uncleared.
func (c *Checker) RunChecks(ctx context.Context) error {
	start := time.Now()
	passes := []func(context.Context) (passResult, error){
		c.fixMissingEpisodeSummaries,
		c.advanceStuckEnrichmentStatuses,
		c.clearStaleLocks,
		c.resetFailedVetting,
	}

	var totalFound, totalFixed int
	var firstErr error
	for _, pass := range passes {
		result, err := pass(ctx)
		if err != nil {
			logging.Warn().Err(err).Msg("health check pass failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		totalFound += result.found
		totalFixed += result.fixed
		if result.found > 0 {
			logging.Info().Str("check", result.check).Int("found", result.found).Int("fixed", result.fixed).Msg("health check pass")
		}
	}

	metrics.RecordStageRun("health_check", time.Since(start), totalFixed, firstErr)
	logging.Info().Int("issues_found", totalFound).Int("issues_fixed", totalFixed).Msg("health check complete")
	return firstErr
}

// fixMissingEpisodeSummaries compiles episode_summaries_compiled for any
// media that has AI-summarized episodes but never got a compiled
// summary written, grounded on _fix_missing_episode_summaries.
func (c *Checker) fixMissingEpisodeSummaries(ctx context.Context) (passResult, error) {
	ids, err := c.Store.MediaNeedingSummaryCompilation(ctx, summaryCompilationLimit)
	if err != nil {
		return passResult{}, err
	}
	if len(ids) == 0 {
		return passResult{check: "missing_episode_summaries"}, nil
	}
	fixed, err := c.Store.BulkUpdateEpisodeSummariesCompiled(ctx, ids)
	if err != nil {
		return passResult{}, err
	}
	return passResult{check: "missing_episode_summaries", found: len(ids), fixed: fixed}, nil
}

// advanceStuckEnrichmentStatuses completes discoveries whose media
// already finished enrichment but whose own status never advanced,
// grounded on _fix_stuck_enrichment_statuses.
func (c *Checker) advanceStuckEnrichmentStatuses(ctx context.Context) (passResult, error) {
	fixed, err := c.Store.AdvanceStuckEnrichmentStatuses(ctx, stuckEnrichmentMinutes, stuckEnrichmentLimit)
	if err != nil {
		return passResult{}, err
	}
	return passResult{check: "stuck_enrichment_statuses", found: fixed, fixed: fixed}, nil
}

// clearStaleLocks clears AI-description and vetting processing locks
// left behind by a worker that died mid-claim, grounded on
// _clear_all_stale_locks.
func (c *Checker) clearStaleLocks(ctx context.Context) (passResult, error) {
	aiCleared, err := c.Store.CleanupStaleAIDescriptionLocks(ctx, staleLockMinutes)
	if err != nil {
		return passResult{}, err
	}
	vettingCleared, err := c.Store.CleanupStaleVettingLocks(ctx, staleLockMinutes)
	if err != nil {
		return passResult{}, err
	}
	total := aiCleared + vettingCleared
	return passResult{check: "stale_locks", found: total, fixed: total}, nil
}

// resetFailedVetting reverts vetting failures that look transient
// (timeouts, generic upstream errors) back to pending for retry,
// grounded on _reset_failed_vetting.
func (c *Checker) resetFailedVetting(ctx context.Context) (passResult, error) {
	fixed, err := c.Store.ResetRetryableFailedVetting(ctx, failedVettingHours, failedVettingLimit)
	if err != nil {
		return passResult{}, err
	}
	return passResult{check: "failed_vetting", found: fixed, fixed: fixed}, nil
}
