// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package main

import (
	"context"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/controller"
	"github.com/patrhick1/pgl-pipeline/internal/enrichment"
	"github.com/patrhick1/pgl-pipeline/internal/health"
	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/match"
	"github.com/patrhick1/pgl-pipeline/internal/scheduler"
	"github.com/patrhick1/pgl-pipeline/internal/store"
	"github.com/patrhick1/pgl-pipeline/internal/vetting"
)

// batchSize bounds each tick's per-stage work, independent of the
// auto-discovery controller's own PipelineBatchSize for the inline
// pipeline it drives directly.
const batchSize = 50

// registerTasks wires the scheduler's catalog, grounded on the three
// scheduling kinds spec.md §4.7 names: the enrichment/vetting/match
// pipeline stages tick on a short interval, the auto-discovery sweep
// runs a little less often since it inline-drives the same stages
// itself, and the health repair sweep and weekly quota reset are
// daily/weekly respectively.
func registerTasks(
	sched *scheduler.Scheduler,
	enrichmentOrchestrator *enrichment.Orchestrator,
	vettingOrchestrator *vetting.Orchestrator,
	matchCreator *match.Creator,
	autoDiscoveryController *controller.Controller,
	healthChecker *health.Checker,
	db *store.Store,
) {
	sched.Register(scheduler.Task{
		Name:          "enrichment",
		Kind:          scheduler.KindInterval,
		Interval:      2 * time.Minute,
		MaxConcurrent: 1,
		Enabled:       true,
		Fn: func(ctx context.Context) error {
			_, err := enrichmentOrchestrator.ProcessBatch(ctx, batchSize)
			return err
		},
	})

	sched.Register(scheduler.Task{
		Name:          "vetting",
		Kind:          scheduler.KindInterval,
		Interval:      2 * time.Minute,
		MaxConcurrent: 1,
		Enabled:       true,
		Fn: func(ctx context.Context) error {
			_, err := vettingOrchestrator.ProcessBatch(ctx, batchSize)
			return err
		},
	})

	sched.Register(scheduler.Task{
		Name:          "match_creation",
		Kind:          scheduler.KindInterval,
		Interval:      2 * time.Minute,
		MaxConcurrent: 1,
		Enabled:       true,
		Fn: func(ctx context.Context) error {
			_, err := matchCreator.ProcessBatch(ctx, batchSize)
			return err
		},
	})

	sched.Register(scheduler.Task{
		Name:          "auto_discovery_sweep",
		Kind:          scheduler.KindInterval,
		Interval:      5 * time.Minute,
		MaxConcurrent: 1,
		Enabled:       true,
		Fn:            autoDiscoveryController.Sweep,
	})

	sched.Register(scheduler.Task{
		Name:          "health_check",
		Kind:          scheduler.KindDaily,
		TimeOfDay:     "03:00",
		MaxConcurrent: 1,
		Enabled:       true,
		Fn:            healthChecker.RunChecks,
	})

	sched.Register(scheduler.Task{
		Name:          "weekly_quota_reset",
		Kind:          scheduler.KindWeekly,
		TimeOfDay:     "00:00",
		DayOfWeek:     time.Monday,
		MaxConcurrent: 1,
		Enabled:       true,
		Fn: func(ctx context.Context) error {
			count, err := db.ResetWeeklyCounters(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logging.Info().Int("count", count).Msg("reset weekly campaign quotas")
			}
			return nil
		},
	})
}
