// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package config loads the pipeline's configuration from layered sources:
// struct defaults, an optional YAML file, then PGL_-prefixed environment
// variables, in that order of increasing precedence.
package config

import "time"

// StoreConfig configures the Postgres-backed persistence layer (C1).
type StoreConfig struct {
	// ForegroundDSN is used for request-path queries: short statement
	// timeouts, used by the API and by interactive operations.
	ForegroundDSN string `koanf:"foreground_dsn"`

	// BackgroundDSN is used by the scheduler-driven batch workers
	// (discovery, enrichment, vetting, match creation).
	BackgroundDSN string `koanf:"background_dsn"`

	// BackgroundStatementTimeout bounds any single background statement,
	// independent of the per-task 25-minute wall clock.
	BackgroundStatementTimeout time.Duration `koanf:"background_statement_timeout"`
}

// AdapterConfig configures outbound podcast-directory adapter calls (C2).
type AdapterConfig struct {
	// PageSize is the page size requested from paginated directory search
	// endpoints.
	PageSize int `koanf:"page_size"`

	// InterRequestDelay paces successive requests to the same adapter to
	// stay under published rate limits.
	InterRequestDelay time.Duration `koanf:"inter_request_delay"`

	// RateLimitBaseDelay is the base delay for the exponential backoff
	// applied when an adapter call is rate-limited.
	RateLimitBaseDelay time.Duration `koanf:"rate_limit_base_delay"`
}

// DiscoveryConfig configures the discovery fetcher (C3).
type DiscoveryConfig struct {
	// MaxDiscoveriesPerRun bounds how many new campaign_media_discoveries
	// rows a single fetcher run may create; media-table growth itself is
	// unbounded by this setting.
	MaxDiscoveriesPerRun int `koanf:"max_discoveries_per_run"`

	// MaxPagesPerAdapter bounds pagination depth for a single
	// (keyword, adapter) pair, as a safety net against a misbehaving
	// directory that never returns a short page.
	MaxPagesPerAdapter int `koanf:"max_pages_per_adapter"`
}

// VettingConfig configures the vetting agent (C5).
type VettingConfig struct {
	// MatchThreshold is the minimum weighted vetting score (0-100) a
	// discovery must clear before a match is created. Defaults to 50.
	MatchThreshold int `koanf:"match_threshold"`
}

// PlanConfig configures per-plan quota enforcement (C6/C8).
type PlanConfig struct {
	// FreeWeeklyAllowance is the number of matches a free-tier campaign
	// may create per rolling week.
	FreeWeeklyAllowance int `koanf:"free_weekly_allowance"`

	// PaidWeeklyAutoDiscoveryCap bounds how many auto-discovery runs a
	// paid-tier campaign may trigger per rolling week.
	PaidWeeklyAutoDiscoveryCap int `koanf:"paid_weekly_auto_discovery_cap"`
}

// SchedulerConfig configures the in-process task scheduler (C7).
type SchedulerConfig struct {
	// TickInterval is how often the scheduler checks for due tasks.
	TickInterval time.Duration `koanf:"tick_interval"`

	// TaskTimeout bounds a single scheduled task invocation.
	TaskTimeout time.Duration `koanf:"task_timeout"`
}

// WebSocketConfig configures the notification websocket (C9).
type WebSocketConfig struct {
	// AllowedOrigins lists origins permitted to open a websocket
	// connection ("*" allows any). Empty rejects every websocket
	// connection.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// EventBusConfig configures the optional durable NATS JetStream mirror
// of the in-process event bus (C9). Disabled by default: a single
// scheduler process has no need for cross-process event delivery, per
// spec.md §9.
type EventBusConfig struct {
	// NATSMirrorEnabled turns on the durable JetStream mirror.
	NATSMirrorEnabled bool `koanf:"nats_mirror_enabled"`

	// NATSURL is the NATS server connection URL. Used only when
	// NATSMirrorEnabled is true and EmbeddedServer is false.
	NATSURL string `koanf:"nats_url"`

	// EmbeddedServer starts an in-process NATS server instead of
	// dialing NATSURL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// JetStreamStoreDir is the embedded server's JetStream storage
	// directory.
	JetStreamStoreDir string `koanf:"jetstream_store_dir"`
}

// LLMConfig configures the LLM providers used by enrichment and vetting.
type LLMConfig struct {
	// APIKeys maps a provider name (e.g. "openai", "anthropic") to its
	// API key.
	APIKeys map[string]string `koanf:"api_keys"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the root configuration struct, unmarshaled from the layered
// koanf sources.
type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Adapter   AdapterConfig   `koanf:"adapter"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Vetting   VettingConfig   `koanf:"vetting"`
	Plan      PlanConfig      `koanf:"plan"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	EventBus  EventBusConfig  `koanf:"eventbus"`
	LLM       LLMConfig       `koanf:"llm"`
	Logging   LoggingConfig   `koanf:"logging"`

	// AuthSecret signs and verifies the WS/API bearer tokens (internal/auth).
	AuthSecret string `koanf:"auth_secret"`
}

// Default returns the configuration's struct defaults, used as the lowest
// precedence layer before any file or environment override is applied.
func Default() Config {
	return Config{
		Store: StoreConfig{
			BackgroundStatementTimeout: 30 * time.Minute,
		},
		Adapter: AdapterConfig{
			PageSize:           25,
			InterRequestDelay:  1200 * time.Millisecond,
			RateLimitBaseDelay: 15 * time.Second,
		},
		Discovery: DiscoveryConfig{
			MaxDiscoveriesPerRun: 20,
			MaxPagesPerAdapter:   20,
		},
		Vetting: VettingConfig{
			MatchThreshold: 50,
		},
		Plan: PlanConfig{
			FreeWeeklyAllowance:        3,
			PaidWeeklyAutoDiscoveryCap: 10,
		},
		Scheduler: SchedulerConfig{
			TickInterval: 60 * time.Second,
			TaskTimeout:  25 * time.Minute,
		},
		EventBus: EventBusConfig{
			NATSMirrorEnabled: false,
			EmbeddedServer:    true,
			JetStreamStoreDir: "/data/pgl-pipeline/jetstream",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks invariants that the struct tags alone can't express.
func (c Config) Validate() error {
	if c.Store.ForegroundDSN == "" {
		return errConfig("store.foreground_dsn is required")
	}
	if c.Store.BackgroundDSN == "" {
		return errConfig("store.background_dsn is required")
	}
	if c.Vetting.MatchThreshold < 0 || c.Vetting.MatchThreshold > 100 {
		return errConfig("vetting.match_threshold must be between 0 and 100")
	}
	if c.AuthSecret == "" {
		return errConfig("auth_secret is required")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errConfig(msg string) error { return configError(msg) }
