// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Command server runs the full pipeline process: the HTTP/websocket API,
// the in-process event bus and notification bridge, and the scheduler
// that drives discovery, enrichment, vetting, match creation, health
// repair, and auto-discovery sweeps, all under one suture supervisor
// tree.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/adapters"
	"github.com/patrhick1/pgl-pipeline/internal/api"
	"github.com/patrhick1/pgl-pipeline/internal/auth"
	"github.com/patrhick1/pgl-pipeline/internal/config"
	"github.com/patrhick1/pgl-pipeline/internal/controller"
	"github.com/patrhick1/pgl-pipeline/internal/discovery"
	"github.com/patrhick1/pgl-pipeline/internal/enrichment"
	"github.com/patrhick1/pgl-pipeline/internal/eventbus"
	"github.com/patrhick1/pgl-pipeline/internal/health"
	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/match"
	"github.com/patrhick1/pgl-pipeline/internal/notify"
	"github.com/patrhick1/pgl-pipeline/internal/scheduler"
	"github.com/patrhick1/pgl-pipeline/internal/store"
	"github.com/patrhick1/pgl-pipeline/internal/supervisor"
	"github.com/patrhick1/pgl-pipeline/internal/supervisor/services"
	"github.com/patrhick1/pgl-pipeline/internal/vetting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.Info().Msg("starting pgl-pipeline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()
	logging.Info().Msg("store opened")

	// Outbound boundaries (C2/C4/C5): adapters are keyed by name and
	// populated per campaign configuration; none ship wired here, same
	// as the LLM/transcription clients - concrete providers are an
	// operator deployment concern, not this repository's (DESIGN.md).
	adapterMap := map[string]adapters.Adapter{}
	llmClient := unconfiguredLLM{}
	transcriber := unconfiguredTranscriber{}

	events := eventbus.New(buildNATSMirror(cfg))

	discoveryFetcher := &discovery.Fetcher{
		Store:      db,
		Adapters:   adapterMap,
		LLM:        llmClient,
		HTTPClient: http.DefaultClient,
		Events:     &busPublisher{bus: events},
		PageSize:   cfg.Adapter.PageSize,
		MaxPages:   cfg.Discovery.MaxPagesPerAdapter,
	}

	enrichmentOrchestrator := &enrichment.Orchestrator{
		Store:       db,
		Adapters:    adapterMap,
		LLM:         llmClient,
		Transcriber: transcriber,
		Events:      &busPublisher{bus: events},
	}

	vettingOrchestrator := &vetting.Orchestrator{
		Store:     db,
		Agent:     vetting.NewAgent(llmClient),
		Events:    &busPublisher{bus: events},
		Threshold: cfg.Vetting.MatchThreshold,
	}

	matchCreator := &match.Creator{
		Store:               db,
		Events:              &matchPublisher{bus: events},
		MatchThreshold:      cfg.Vetting.MatchThreshold,
		FreeWeeklyAllowance: cfg.Plan.FreeWeeklyAllowance,
	}

	autoDiscoveryController := &controller.Controller{
		Store:                db,
		Discovery:            discoveryFetcher,
		Enrichment:           enrichmentOrchestrator,
		Vetting:              vettingOrchestrator,
		Match:                matchCreator,
		Events:               &controllerPublisher{bus: events},
		MaxDiscoveriesPerRun: cfg.Discovery.MaxDiscoveriesPerRun,
		FreeWeeklyAllowance:  cfg.Plan.FreeWeeklyAllowance,
	}

	healthChecker := &health.Checker{Store: db}

	hub := notify.NewHub()
	bridge := &notify.Bridge{Hub: hub}
	if err := bridge.Attach(ctx, events); err != nil {
		logging.Fatal().Err(err).Msg("failed to attach notification bridge")
	}

	sched := scheduler.New(scheduler.Config{
		TickInterval: cfg.Scheduler.TickInterval,
		TaskTimeout:  cfg.Scheduler.TaskTimeout,
	})
	registerTasks(sched, enrichmentOrchestrator, vettingOrchestrator, matchCreator, autoDiscoveryController, healthChecker, db)

	verifier, err := auth.NewVerifier(cfg.AuthSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build token verifier")
	}

	router := &api.Router{
		Store:          db,
		Discovery:      discoveryFetcher,
		Scheduler:      sched,
		Hub:            hub,
		Verifier:       verifier,
		Events:         events,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}
	httpServer := &http.Server{
		Addr:              addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddDataService(services.NewSchedulerService(sched))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))
	logging.Info().Str("addr", httpServer.Addr).Msg("supervisor tree assembled")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("pgl-pipeline stopped gracefully")
}

func addr() string {
	if a := os.Getenv("PGL_HTTP_ADDR"); a != "" {
		return a
	}
	return ":8080"
}

// buildNATSMirror constructs the optional durable event mirror. Disabled
// by default (single-process deployments have no need for cross-process
// event delivery, per SPEC_FULL.md's event bus section); left nil, the
// bus is purely in-process.
func buildNATSMirror(cfg config.Config) eventbus.Mirror {
	if !cfg.EventBus.NATSMirrorEnabled {
		return nil
	}
	mirror, err := eventbus.NewNATSMirror(eventbus.NATSMirrorConfig{
		URL:            cfg.EventBus.NATSURL,
		EmbeddedServer: cfg.EventBus.EmbeddedServer,
		JetStreamDir:   cfg.EventBus.JetStreamStoreDir,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to start NATS mirror, continuing without it")
		return nil
	}
	if mirror == nil {
		// Defensive: a nil *NATSMirror boxed into the Mirror interface
		// would be a non-nil-but-unusable interface value, so this case
		// is checked explicitly rather than just `return mirror`.
		return nil
	}
	return mirror
}
