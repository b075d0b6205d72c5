// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for production observability of the outreach pipeline:
// - Postgres query performance (foreground and background pools)
// - API endpoint latency and throughput
// - Pipeline stage duration/throughput (discovery, enrichment, vetting, match)
// - Directory-adapter circuit breaker state
// - Dead-letter queue depth for permanently-failed discoveries
// - Event bus (Watermill/NATS) publish/consume metrics
// - WebSocket connections for campaign progress notifications

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgl_db_query_duration_seconds",
			Help:    "Duration of Postgres queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_db_query_errors_total",
			Help: "Total number of Postgres query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgl_db_connection_pool_size",
			Help: "Current number of database connections in use",
		},
		[]string{"pool"}, // "foreground", "background"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgl_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgl_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Pipeline Stage Metrics (discovery, enrichment, vetting, match, review)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgl_stage_duration_seconds",
			Help:    "Duration of a scheduler-driven pipeline stage run in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"}, // "discovery", "enrichment", "vetting", "match_creation", "health_check", "auto_discovery_controller"
	)

	StageItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_stage_items_processed_total",
			Help: "Total number of discoveries processed by a pipeline stage",
		},
		[]string{"stage"},
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_stage_errors_total",
			Help: "Total number of pipeline stage errors",
		},
		[]string{"stage", "error_type"}, // error_type: "adapter", "database", "llm", "validation"
	)

	StageLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgl_stage_last_success_timestamp",
			Help: "Unix timestamp of the last successful run of a pipeline stage",
		},
		[]string{"stage"},
	)

	StageBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgl_stage_batch_size",
			Help:    "Number of discoveries claimed per stage batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"stage"},
	)

	// LLM Call Metrics
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgl_llm_call_duration_seconds",
			Help:    "Duration of LLM calls (vetting, AI description) in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"}, // "vetting", "ai_description"
	)

	LLMCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_llm_call_errors_total",
			Help: "Total number of LLM call errors",
		},
		[]string{"purpose", "error_type"},
	)

	// Cache Metrics (quality score / embedding caches)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgl_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgl_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgl_websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics (shared by every adapters.GuardedAdapter)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgl_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgl_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Dead Letter Metrics — discoveries that exhausted retries at a stage
	// and need operator attention (SPEC_FULL.md §9 resolution #3).
	DLQEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgl_dlq_entries_total",
			Help: "Current number of discoveries parked in a failed state",
		},
	)

	DLQEntriesByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgl_dlq_entries_by_stage",
			Help: "Current number of failed discoveries by stage",
		},
		[]string{"stage"},
	)

	DLQRetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgl_dlq_retry_attempts_total",
			Help: "Total number of operator-triggered re-vet attempts",
		},
	)

	DLQRetrySuccesses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pgl_dlq_retry_successes_total",
			Help: "Total number of successful re-vet attempts",
		},
	)

	DLQOldestEntryAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgl_dlq_oldest_entry_age_seconds",
			Help: "Age of the oldest failed discovery in seconds",
		},
	)

	// Event Bus Metrics (Watermill gochannel + optional NATS JetStream mirror)
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_events_published_total",
			Help: "Total number of events published to the event bus",
		},
		[]string{"topic"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_events_consumed_total",
			Help: "Total number of events consumed from the event bus",
		},
		[]string{"topic", "handler"},
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgl_event_processing_duration_seconds",
			Help:    "Duration of event handler processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "handler"},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgl_event_handler_errors_total",
			Help: "Total number of event handler failures",
		},
		[]string{"topic", "handler"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgl_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgl_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordStageRun records one scheduler-driven run of a pipeline stage.
func RecordStageRun(stage string, duration time.Duration, itemsProcessed int, err error) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	StageItemsProcessed.WithLabelValues(stage).Add(float64(itemsProcessed))
	if err != nil {
		StageErrors.WithLabelValues(stage, classifyStageError(err)).Inc()
		return
	}
	StageLastSuccess.WithLabelValues(stage).Set(float64(time.Now().Unix()))
}

// RecordStageBatch records the size of a batch claimed by a pipeline stage.
func RecordStageBatch(stage string, batchSize int) {
	StageBatchSize.WithLabelValues(stage).Observe(float64(batchSize))
}

func classifyStageError(err error) string {
	msg := err.Error()
	switch {
	case contains(msg, "adapter"):
		return "adapter"
	case contains(msg, "store") || contains(msg, "database"):
		return "database"
	case contains(msg, "llm"):
		return "llm"
	default:
		return "other"
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

// RecordLLMCall records one LLM invocation.
func RecordLLMCall(purpose string, duration time.Duration, err error) {
	LLMCallDuration.WithLabelValues(purpose).Observe(duration.Seconds())
	if err != nil {
		LLMCallErrors.WithLabelValues(purpose, classifyStageError(err)).Inc()
	}
}

// RecordDLQRetry records an operator-triggered re-vet attempt and its outcome.
func RecordDLQRetry(success bool) {
	DLQRetryAttempts.Inc()
	if success {
		DLQRetrySuccesses.Inc()
	}
}

// UpdateDLQGauges updates the failed-discovery gauges with current counts.
func UpdateDLQGauges(totalEntries int64, oldestEntryAge float64, entriesByStage map[string]int64) {
	DLQEntriesTotal.Set(float64(totalEntries))
	DLQOldestEntryAge.Set(oldestEntryAge)
	for stage, count := range entriesByStage {
		DLQEntriesByStage.WithLabelValues(stage).Set(float64(count))
	}
}

// RecordEventPublish records an event published to the bus.
func RecordEventPublish(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventConsume records an event handled by a subscriber, along with
// the time spent in the handler and whether it failed.
func RecordEventConsume(topic, handler string, duration time.Duration, err error) {
	EventsConsumed.WithLabelValues(topic, handler).Inc()
	EventProcessingDuration.WithLabelValues(topic, handler).Observe(duration.Seconds())
	if err != nil {
		EventHandlerErrors.WithLabelValues(topic, handler).Inc()
	}
}
