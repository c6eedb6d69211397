// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nextup/nextup/internal/metrics"
)

// Provider fetches candidate actions for a user from one upstream source.
// Implementations must honor context cancellation and return quickly once
// the context is done.
type Provider interface {
	// Name returns the provider identifier (e.g., "course_selections").
	Name() string

	// Fetch returns the candidate actions this source offers the user.
	// An empty slice with a nil error is a successful fetch.
	Fetch(ctx context.Context, userID string) ([]CandidateItem, error)
}

// Provider call outcomes recorded in SourceStatus and metrics labels.
const (
	StatusOK      = "ok"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

// AggregatorConfig holds fan-out parameters.
type AggregatorConfig struct {
	// ProviderTimeout bounds each individual provider call.
	ProviderTimeout time.Duration

	// MaxInFlight bounds concurrent provider calls per aggregation.
	MaxInFlight int
}

// Aggregator fans out to all registered providers concurrently and merges
// their candidates. A failing provider degrades only its own source; the
// aggregation as a whole fails only when every provider does.
type Aggregator struct {
	providers []Provider
	cfg       AggregatorConfig
	logger    zerolog.Logger
}

// NewAggregator creates an aggregator over the given providers. Provider
// order is significant: merged candidates follow registration order.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAggregator(providers []Provider, cfg AggregatorConfig, logger zerolog.Logger) *Aggregator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 2 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = len(providers)
	}
	return &Aggregator{
		providers: providers,
		cfg:       cfg,
		logger:    logger.With().Str("component", "aggregator").Logger(),
	}
}

type providerResult struct {
	items  []CandidateItem
	status SourceStatus
}

// Collect fetches candidates from every provider concurrently. The merged
// slice preserves provider registration order, then provider-returned
// order, so repeated calls with identical upstream data yield identical
// output. Returns ErrAllProvidersFailed when no provider succeeds; the
// per-provider statuses are returned in all cases.
func (a *Aggregator) Collect(ctx context.Context, userID string) ([]CandidateItem, []SourceStatus, error) {
	results := make([]providerResult, len(a.providers))
	sem := make(chan struct{}, a.cfg.MaxInFlight)

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(idx int, provider Provider) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = a.fetchOne(ctx, provider, userID)
		}(i, p)
	}
	wg.Wait()

	statuses := make([]SourceStatus, len(results))
	succeeded := 0
	total := 0
	for i, r := range results {
		statuses[i] = r.status
		if r.status.Status == StatusOK {
			succeeded++
			total += len(r.items)
		}
	}

	if succeeded == 0 {
		a.logger.Error().
			Str("user_id", userID).
			Int("providers", len(a.providers)).
			Msg("all providers failed")
		return nil, statuses, ErrAllProvidersFailed
	}

	merged := make([]CandidateItem, 0, total)
	for _, r := range results {
		merged = append(merged, r.items...)
	}

	a.logger.Debug().
		Str("user_id", userID).
		Int("candidates", len(merged)).
		Int("providers_ok", succeeded).
		Int("providers_failed", len(a.providers)-succeeded).
		Msg("aggregation complete")

	return merged, statuses, nil
}

// fetchOne calls a single provider under its own timeout and classifies
// the outcome.
func (a *Aggregator) fetchOne(ctx context.Context, provider Provider, userID string) providerResult {
	name := provider.Name()

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	items, err := provider.Fetch(callCtx, userID)
	elapsed := time.Since(start)

	metrics.ProviderDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		status := StatusError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrProviderTimeout) {
			status = StatusTimeout
		}
		metrics.ProviderRequests.WithLabelValues(name, status).Inc()

		a.logger.Warn().
			Err(err).
			Str("provider", name).
			Str("user_id", userID).
			Dur("elapsed", elapsed).
			Msg("provider fetch failed")

		return providerResult{status: SourceStatus{
			Name:       name,
			Status:     status,
			DurationMS: elapsed.Milliseconds(),
			Error:      err.Error(),
		}}
	}

	metrics.ProviderRequests.WithLabelValues(name, StatusOK).Inc()

	// Stamp the source so downstream consumers can attribute candidates.
	for i := range items {
		if items[i].Source == "" {
			items[i].Source = name
		}
	}

	return providerResult{
		items: items,
		status: SourceStatus{
			Name:       name,
			Status:     StatusOK,
			Count:      len(items),
			DurationMS: elapsed.Milliseconds(),
		},
	}
}
