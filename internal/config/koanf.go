// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nextup/config.yaml",
	"/etc/nextup/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. These are applied first,
// then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8370,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Platform: PlatformConfig{
			BaseURL:         "",
			ServiceToken:    "",
			Timeout:         10 * time.Second,
			ProviderTimeout: 2 * time.Second,
			MaxInFlight:     0, // unbounded
		},
		Engine: EngineConfig{
			WeightUrgency:     0.35,
			WeightImportance:  0.30,
			WeightPersonalFit: 0.25,
			WeightGrowthValue: 0.10,
			CriticalHours:     24,
			HighHours:         72,
			MediumHours:       168,
			LowHours:          720,
			SelectionLimit:    3,
			SetTTL:            2 * time.Hour,
		},
		Cache: CacheConfig{
			MaxEntries:           5000,
			RetryBackoff:         30 * time.Second,
			ComputeTimeout:       15 * time.Second,
			RefreshAheadWindow:   5 * time.Minute,
			RefreshAheadInterval: time.Minute,
		},
		Providers: ProvidersConfig{
			PopularMinCompletions: 5,
			RecentPublishDays:     14,
			GoalCheckInDays:       21,
			ReportWindowDays:      30,
			ReportMinHours:        10,
		},
		Feedback: FeedbackConfig{
			QueueSize: 1024,
			StorePath: "/data/feedback",
			Retention: 90 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration using Koanf v2 with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when set from environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices
// for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are skipped so random environment state never
// pollutes the config.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - PLATFORM_BASE_URL -> platform.base_url
//   - ENGINE_WEIGHT_URGENCY -> engine.weight_urgency
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":        "server.host",
		"http_port":        "server.port",
		"http_timeout":     "server.timeout",
		"shutdown_timeout": "server.shutdown_timeout",

		// Platform mappings
		"platform_base_url":         "platform.base_url",
		"platform_service_token":    "platform.service_token",
		"platform_timeout":          "platform.timeout",
		"platform_provider_timeout": "platform.provider_timeout",
		"platform_max_in_flight":    "platform.max_in_flight",

		// Engine mappings
		"engine_weight_urgency":      "engine.weight_urgency",
		"engine_weight_importance":   "engine.weight_importance",
		"engine_weight_personal_fit": "engine.weight_personal_fit",
		"engine_weight_growth_value": "engine.weight_growth_value",
		"engine_critical_hours":      "engine.critical_hours",
		"engine_high_hours":          "engine.high_hours",
		"engine_medium_hours":        "engine.medium_hours",
		"engine_low_hours":           "engine.low_hours",
		"engine_selection_limit":     "engine.selection_limit",
		"engine_set_ttl":             "engine.set_ttl",

		// Cache mappings
		"cache_max_entries":            "cache.max_entries",
		"cache_retry_backoff":          "cache.retry_backoff",
		"cache_compute_timeout":        "cache.compute_timeout",
		"cache_refresh_ahead_window":   "cache.refresh_ahead_window",
		"cache_refresh_ahead_interval": "cache.refresh_ahead_interval",

		// Provider mappings
		"providers_popular_min_completions": "providers.popular_min_completions",
		"providers_recent_publish_days":     "providers.recent_publish_days",
		"providers_goal_checkin_days":       "providers.goal_checkin_days",
		"providers_report_window_days":      "providers.report_window_days",
		"providers_report_min_hours":        "providers.report_min_hours",

		// Feedback mappings
		"feedback_queue_size": "feedback.queue_size",
		"feedback_store_path": "feedback.store_path",
		"feedback_retention":  "feedback.retention",

		// Security mappings
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
