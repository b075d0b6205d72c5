package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every recognized environment variable carries,
// e.g. PGL_STORE_FOREGROUND_DSN.
const EnvPrefix = "PGL_"

// ConfigPathEnvVar names the environment variable that, if set, points at
// the YAML config file to load.
const ConfigPathEnvVar = "PGL_CONFIG_FILE"

// DefaultConfigPaths are checked in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config/config.yaml",
	"/etc/pgl-pipeline/config.yaml",
}

// sliceConfigPaths lists koanf paths that hold comma-separated lists in
// environment variables and need splitting after the env layer loads.
var sliceConfigPaths = []string{
	"websocket.allowed_origins",
}

// Load builds a Config by layering struct defaults, an optional YAML file,
// and PGL_-prefixed environment variables, in that order of increasing
// precedence, then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	processSliceFields(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKoanfPaths maps each recognized PGL_-prefixed environment variable to
// its koanf path. An explicit table (rather than a blanket "_" -> "."
// replace) is required because several koanf keys are themselves
// snake_case (e.g. store.foreground_dsn), which a naive split would mangle.
var envKoanfPaths = map[string]string{
	"STORE_FOREGROUND_DSN":              "store.foreground_dsn",
	"STORE_BACKGROUND_DSN":              "store.background_dsn",
	"STORE_BACKGROUND_STATEMENT_TIMEOUT": "store.background_statement_timeout",
	"ADAPTER_PAGE_SIZE":                 "adapter.page_size",
	"ADAPTER_INTER_REQUEST_DELAY":       "adapter.inter_request_delay",
	"ADAPTER_RATE_LIMIT_BASE_DELAY":     "adapter.rate_limit_base_delay",
	"VETTING_MATCH_THRESHOLD":           "vetting.match_threshold",
	"PLAN_FREE_WEEKLY_ALLOWANCE":        "plan.free_weekly_allowance",
	"PLAN_PAID_WEEKLY_AUTO_DISCOVERY_CAP": "plan.paid_weekly_auto_discovery_cap",
	"SCHEDULER_TICK_INTERVAL":           "scheduler.tick_interval",
	"SCHEDULER_TASK_TIMEOUT":            "scheduler.task_timeout",
	"WEBSOCKET_ALLOWED_ORIGINS":         "websocket.allowed_origins",
	"LOGGING_LEVEL":                     "logging.level",
	"LOGGING_FORMAT":                    "logging.format",
	"AUTH_SECRET":                       "auth_secret",
}

// envTransformFunc maps a PGL_-prefixed environment variable name to its
// koanf path via envKoanfPaths. Variables not listed there are dropped,
// LLM_API_KEYS included: it populates a map, not a scalar path, so it is
// not loaded from the environment.
func envTransformFunc(s string) string {
	key := strings.TrimPrefix(s, EnvPrefix)
	if path, ok := envKoanfPaths[key]; ok {
		return path
	}
	return ""
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// processSliceFields splits comma-separated environment values for fields
// that koanf's env provider otherwise loads as a single scalar string.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		raw := k.String(path)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		_ = k.Set(path, parts)
	}
}
