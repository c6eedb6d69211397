// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package config defines the service configuration and its layered
// loading. Precedence is ENV > config file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Platform  PlatformConfig  `koanf:"platform"`
	Engine    EngineConfig    `koanf:"engine"`
	Cache     CacheConfig     `koanf:"cache"`
	Providers ProvidersConfig `koanf:"providers"`
	Feedback  FeedbackConfig  `koanf:"feedback"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// PlatformConfig holds upstream learning-platform API settings.
type PlatformConfig struct {
	// BaseURL is the platform API root, without a trailing slash.
	BaseURL string `koanf:"base_url"`

	// ServiceToken authenticates this service to the platform.
	ServiceToken string `koanf:"service_token"`

	// Timeout is the HTTP client timeout for platform requests.
	Timeout time.Duration `koanf:"timeout"`

	// ProviderTimeout bounds each provider fetch during aggregation.
	ProviderTimeout time.Duration `koanf:"provider_timeout"`

	// MaxInFlight caps concurrent provider fetches per aggregation.
	// Zero means unbounded.
	MaxInFlight int `koanf:"max_in_flight"`
}

// EngineConfig holds scoring and selection settings.
type EngineConfig struct {
	// Weights for the four scoring factors. Must be non-negative and
	// sum to 1.
	WeightUrgency     float64 `koanf:"weight_urgency"`
	WeightImportance  float64 `koanf:"weight_importance"`
	WeightPersonalFit float64 `koanf:"weight_personal_fit"`
	WeightGrowthValue float64 `koanf:"weight_growth_value"`

	// Urgency tier boundaries, in hours until deadline.
	CriticalHours float64 `koanf:"critical_hours"`
	HighHours     float64 `koanf:"high_hours"`
	MediumHours   float64 `koanf:"medium_hours"`
	LowHours      float64 `koanf:"low_hours"`

	// SelectionLimit is how many recommendations are returned per user.
	SelectionLimit int `koanf:"selection_limit"`

	// SetTTL is how long a computed recommendation set stays fresh.
	SetTTL time.Duration `koanf:"set_ttl"`
}

// CacheConfig holds recommendation cache settings.
type CacheConfig struct {
	// MaxEntries caps the number of cached per-user sets.
	MaxEntries int `koanf:"max_entries"`

	// RetryBackoff is how long to wait after a total upstream failure
	// before recomputing for the same user.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// ComputeTimeout bounds a single background recomputation.
	ComputeTimeout time.Duration `koanf:"compute_timeout"`

	// RefreshAheadWindow starts background refreshes for sets expiring
	// within this window.
	RefreshAheadWindow time.Duration `koanf:"refresh_ahead_window"`

	// RefreshAheadInterval is how often the refresh sweep runs.
	RefreshAheadInterval time.Duration `koanf:"refresh_ahead_interval"`
}

// ProvidersConfig holds provider thresholds.
type ProvidersConfig struct {
	// PopularMinCompletions is the peer-completion floor for popular
	// catalog courses.
	PopularMinCompletions int `koanf:"popular_min_completions"`

	// RecentPublishDays is the recency window for new courses and exams.
	RecentPublishDays int `koanf:"recent_publish_days"`

	// GoalCheckInDays is how long a goal may go without a check-in.
	GoalCheckInDays int `koanf:"goal_checkin_days"`

	// ReportWindowDays is the study-hours reporting window.
	ReportWindowDays int `koanf:"report_window_days"`

	// ReportMinHours is the study-hours floor under which a nudge is
	// surfaced.
	ReportMinHours float64 `koanf:"report_min_hours"`
}

// FeedbackConfig holds feedback recorder settings.
type FeedbackConfig struct {
	// QueueSize is the bounded event queue capacity.
	QueueSize int `koanf:"queue_size"`

	// StorePath is the BadgerDB directory for feedback events. Empty
	// selects in-memory storage.
	StorePath string `koanf:"store_path"`

	// Retention is how long feedback events are kept.
	Retention time.Duration `koanf:"retention"`
}

// SecurityConfig holds request-level protection settings.
type SecurityConfig struct {
	// RateLimitReqs is the request budget per window per client.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns off rate limiting.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed cross-origin request origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`

	// Caller adds file:line to log events.
	Caller bool `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	if c.Platform.BaseURL == "" {
		return fmt.Errorf("platform.base_url is required")
	}
	if c.Platform.ProviderTimeout <= 0 {
		return fmt.Errorf("platform.provider_timeout must be positive, got %s", c.Platform.ProviderTimeout)
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"engine.weight_urgency", c.Engine.WeightUrgency},
		{"engine.weight_importance", c.Engine.WeightImportance},
		{"engine.weight_personal_fit", c.Engine.WeightPersonalFit},
		{"engine.weight_growth_value", c.Engine.WeightGrowthValue},
	}
	sum := 0.0
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("%s must not be negative, got %g", w.name, w.value)
		}
		sum += w.value
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("engine weights must sum to 1, got %g", sum)
	}

	if !(c.Engine.CriticalHours < c.Engine.HighHours &&
		c.Engine.HighHours < c.Engine.MediumHours &&
		c.Engine.MediumHours < c.Engine.LowHours) {
		return fmt.Errorf("engine tier boundaries must be strictly increasing")
	}
	if c.Engine.SelectionLimit < 1 {
		return fmt.Errorf("engine.selection_limit must be at least 1, got %d", c.Engine.SelectionLimit)
	}
	if c.Engine.SetTTL <= 0 {
		return fmt.Errorf("engine.set_ttl must be positive, got %s", c.Engine.SetTTL)
	}

	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.ComputeTimeout <= 0 {
		return fmt.Errorf("cache.compute_timeout must be positive, got %s", c.Cache.ComputeTimeout)
	}

	if c.Feedback.QueueSize < 1 {
		return fmt.Errorf("feedback.queue_size must be at least 1, got %d", c.Feedback.QueueSize)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// Addr returns the server listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
