// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package main is the entry point for the NextUp server.
//
// NextUp aggregates course enrollments, project tasks, goals, study
// reports, and exams from the learning platform, scores them per user,
// and serves each user's top next-action recommendations over a REST
// API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config file, and
//     environment variables (Koanf v2)
//  2. Platform client: authenticated HTTP client behind a circuit breaker
//  3. Providers: one candidate source per platform surface
//  4. Engine: concurrent aggregation, scoring, and diversity selection
//  5. Cache: per-user recommendation sets with single-flight compute,
//     stale-while-revalidate, and LRU eviction
//  6. Feedback: async event recorder backed by BadgerDB
//  7. HTTP server: REST API under supervision (suture v4)
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables
//   - Config file (config.yaml)
//   - Built-in defaults
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/nextup/nextup/internal/api"
	"github.com/nextup/nextup/internal/cache"
	"github.com/nextup/nextup/internal/config"
	"github.com/nextup/nextup/internal/feedback"
	"github.com/nextup/nextup/internal/logging"
	"github.com/nextup/nextup/internal/providers"
	"github.com/nextup/nextup/internal/recommend"
	"github.com/nextup/nextup/internal/supervisor"
	"github.com/nextup/nextup/internal/supervisor/services"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting NextUp with supervisor tree")

	logging.Info().
		Str("platform_url", cfg.Platform.BaseURL).
		Str("listen_addr", cfg.Server.Addr()).
		Str("feedback_store", cfg.Feedback.StorePath).
		Msg("Configuration loaded")

	logger := logging.Logger()

	// Platform API client, wrapped so sustained upstream failures trip
	// the circuit instead of piling up timeouts.
	client := providers.NewPlatformClient(providers.ClientConfig{
		BaseURL:      cfg.Platform.BaseURL,
		ServiceToken: cfg.Platform.ServiceToken,
		Timeout:      cfg.Platform.Timeout,
	})
	platform := providers.NewCircuitBreakerClient(client)

	provs := providers.NewAll(platform, providers.Config{
		PopularMinCompletions: cfg.Providers.PopularMinCompletions,
		RecentPublishDays:     cfg.Providers.RecentPublishDays,
		GoalCheckInDays:       cfg.Providers.GoalCheckInDays,
		ReportWindowDays:      cfg.Providers.ReportWindowDays,
		ReportMinHours:        cfg.Providers.ReportMinHours,
	})
	profiles := providers.NewProfileSource(platform)

	aggregator := recommend.NewAggregator(provs, recommend.AggregatorConfig{
		ProviderTimeout: cfg.Platform.ProviderTimeout,
		MaxInFlight:     cfg.Platform.MaxInFlight,
	}, logger)

	engine, err := recommend.NewEngine(aggregator, profiles, recommend.EngineConfig{
		Weights: recommend.Weights{
			Urgency:     cfg.Engine.WeightUrgency,
			Importance:  cfg.Engine.WeightImportance,
			PersonalFit: cfg.Engine.WeightPersonalFit,
			GrowthValue: cfg.Engine.WeightGrowthValue,
		},
		Tiers: recommend.TierThresholds{
			CriticalHours: cfg.Engine.CriticalHours,
			HighHours:     cfg.Engine.HighHours,
			MediumHours:   cfg.Engine.MediumHours,
			LowHours:      cfg.Engine.LowHours,
		},
		SelectionLimit: cfg.Engine.SelectionLimit,
		SetTTL:         cfg.Engine.SetTTL,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}

	manager := cache.NewManager(engine, cache.Config{
		MaxEntries:         cfg.Cache.MaxEntries,
		RetryBackoff:       cfg.Cache.RetryBackoff,
		ComputeTimeout:     cfg.Cache.ComputeTimeout,
		RefreshAheadWindow: cfg.Cache.RefreshAheadWindow,
	}, logger)

	// Feedback store. An empty path selects in-memory storage, which
	// loses events on restart but needs no volume.
	opts := badger.DefaultOptions(cfg.Feedback.StorePath).WithLogger(nil)
	if cfg.Feedback.StorePath == "" {
		opts = opts.WithInMemory(true)
		logging.Warn().Msg("Feedback store path not set, events will not survive restarts")
	}
	db, err := badger.Open(opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open feedback store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feedback store")
		}
	}()

	store := feedback.NewBadgerStore(db, cfg.Feedback.Retention)
	recorder := feedback.NewRecorder(store, feedback.Config{
		QueueSize: cfg.Feedback.QueueSize,
	}, logger)

	handler := api.NewHandler(manager, recorder, version)
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	router := api.NewRouter(handler, middleware)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// Supervisor tree: background workers in one layer, the HTTP server
	// in another so API restarts do not disturb the workers.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddWorkerService(services.NewFeedbackService(recorder))
	tree.AddWorkerService(services.NewRefreshService(manager, cfg.Cache.RefreshAheadInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree failed")
		}
		cancel()
	}

	// Wait for the tree to wind down, tolerating the cancellation error.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Error during shutdown")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
