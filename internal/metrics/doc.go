// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

/*
Package metrics provides Prometheus metrics collection and export for the
outreach pipeline.

# Overview

The package instruments:
  - Postgres query performance across the foreground and background pools
  - API endpoint latency and throughput
  - Pipeline stage duration/throughput (discovery, enrichment, vetting,
    match creation, auto-discovery)
  - LLM call duration and errors (vetting, AI description generation)
  - Directory-adapter circuit breaker state transitions
  - Discoveries parked in a failed state, awaiting operator re-vet
  - Event bus (Watermill/NATS JetStream) publish/consume throughput
  - WebSocket connections serving campaign progress notifications

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Usage Example

	import (
	    "github.com/patrhick1/pgl-pipeline/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    metrics.RecordAPIRequest("GET", "/api/v1/campaigns", "200", 23*time.Millisecond)
	    metrics.RecordStageRun("vetting", 12*time.Second, 10, nil)
	}

# Cardinality

Stage and adapter names are drawn from small fixed sets (pipeline stages,
configured directory adapters), so label cardinality stays bounded without
extra precaution.

# See Also

  - internal/adapters: circuit breaker integration
  - internal/scheduler: stage run recording
  - internal/eventbus: event publish/consume recording
*/
package metrics
