// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/patrhick1/pgl-pipeline/internal/auth"
	"github.com/patrhick1/pgl-pipeline/internal/discovery"
	"github.com/patrhick1/pgl-pipeline/internal/eventbus"
	"github.com/patrhick1/pgl-pipeline/internal/middleware"
	"github.com/patrhick1/pgl-pipeline/internal/notify"
	"github.com/patrhick1/pgl-pipeline/internal/scheduler"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// Router wires every handler group against its dependencies and builds
// the chi.Mux the server listens on, grounded on the teacher's
// chi_router.go SetupChi pattern: a global middleware stack, then one
// chi.Route group per concern with its own rate limit and auth
// requirements layered in.
type Router struct {
	Store          *store.Store
	Discovery      *discovery.Fetcher
	Scheduler      *scheduler.Scheduler
	Hub            *notify.Hub
	Verifier       *auth.Verifier
	Events         *eventbus.Bus
	AllowedOrigins []string
}

// chiAdapter lifts an http.HandlerFunc-style middleware into chi's
// func(http.Handler) http.Handler shape, the same adapter the teacher
// uses to reuse its pre-chi middleware functions unchanged.
func chiAdapter(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi builds the full route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(chiAdapter(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chiAdapter(middleware.PrometheusMetrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handleHealthLive)
		r.Get("/ready", router.handleHealthReady)
	})

	h := &handler{router: router}

	r.Route("/api/v1/campaigns/{campaignID}", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))
		r.Use(chiAdapter(router.authenticate))
		r.Use(router.requireCampaignMatch)

		r.Post("/discover", h.triggerDiscovery)
		r.Get("/discovery-status", h.discoveryStatus)
		r.Patch("/auto-discovery", h.updateAutoDiscovery)
		r.Get("/discoveries", h.listDiscoveries)
		r.Post("/discoveries/{discoveryID}/revet", h.revetDiscovery)
	})

	r.Route("/api/v1/review-tasks", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))
		r.Use(chiAdapter(router.authenticate))

		r.Get("/", h.listReviewTasks)
		r.Post("/{taskID}/approve", h.resolveReviewTask("approved"))
		r.Post("/{taskID}/reject", h.resolveReviewTask("rejected"))
	})

	r.Route("/api/v1/scheduler", func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Use(chiAdapter(router.authenticate))

		r.Get("/status", h.schedulerStatus)
		r.Post("/control", h.schedulerControl)
	})

	r.Get("/api/v1/notifications/ws", router.handleNotificationsWS)

	return r
}
