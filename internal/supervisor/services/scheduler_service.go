// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package services

import (
	"context"
	"fmt"
)

// StartStopper matches internal/scheduler.Scheduler's Start/Stop lifecycle,
// the same Start/Stop-to-Serve translation this package's doc comment
// describes generically.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps a StartStopper (internal/scheduler.Scheduler) as
// a supervised service: Start launches its own tick-loop goroutine, so
// Serve only needs to wait for shutdown and call Stop.
type SchedulerService struct {
	scheduler StartStopper
	name      string
}

// NewSchedulerService creates a new scheduler service wrapper.
func NewSchedulerService(scheduler StartStopper) *SchedulerService {
	return &SchedulerService{scheduler: scheduler, name: "scheduler"}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}
	<-ctx.Done()
	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *SchedulerService) String() string {
	return s.name
}
