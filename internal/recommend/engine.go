// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nextup/nextup/internal/metrics"
)

// ProfileSource fetches the user attributes used for personal-fit scoring.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}

// EngineConfig holds the computation parameters.
type EngineConfig struct {
	// Weights are the scoring factor weights.
	Weights Weights

	// Tiers are the urgency tier boundaries.
	Tiers TierThresholds

	// SelectionLimit is the maximum recommendations per set.
	SelectionLimit int

	// SetTTL is how long a computed set stays fresh.
	SetTTL time.Duration
}

// DefaultEngineConfig returns the standard computation parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:        DefaultWeights(),
		Tiers:          DefaultTierThresholds(),
		SelectionLimit: DefaultSelectionLimit,
		SetTTL:         2 * time.Hour,
	}
}

// Engine runs the full computation pipeline for one user: aggregate
// candidates, score, select, explain. It holds no per-user state; caching
// sits above it.
type Engine struct {
	aggregator *Aggregator
	scorer     *Scorer
	profiles   ProfileSource
	cfg        EngineConfig
	logger     zerolog.Logger

	// now is the clock; replaced in tests for deterministic scoring.
	now func() time.Time
}

// NewEngine creates an engine. The profile source may be nil, in which
// case every candidate receives the neutral personal-fit score.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(aggregator *Aggregator, profiles ProfileSource, cfg EngineConfig, logger zerolog.Logger) (*Engine, error) {
	if cfg.SelectionLimit <= 0 {
		cfg.SelectionLimit = DefaultSelectionLimit
	}
	if cfg.SetTTL <= 0 {
		cfg.SetTTL = 2 * time.Hour
	}

	scorer, err := NewScorer(cfg.Weights, cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}

	return &Engine{
		aggregator: aggregator,
		scorer:     scorer,
		profiles:   profiles,
		cfg:        cfg,
		logger:     logger.With().Str("component", "engine").Logger(),
		now:        time.Now,
	}, nil
}

// Compute produces a fresh recommendation set for the user. Partial
// provider failure degrades the candidate pool silently; only total
// failure returns an error (ErrAllProvidersFailed).
func (e *Engine) Compute(ctx context.Context, userID string) (*RecommendationSet, error) {
	start := e.now()

	profile := e.fetchProfile(ctx, userID)

	candidates, statuses, err := e.aggregator.Collect(ctx, userID)
	if err != nil {
		metrics.ComputesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("aggregating candidates for user %s: %w", userID, err)
	}

	// Score everything against a single instant so the batch is
	// internally consistent.
	now := e.now()
	scored := make([]Recommendation, 0, len(candidates))
	for _, item := range candidates {
		if item.ID == "" || !item.Type.Valid() {
			e.logger.Warn().
				Str("user_id", userID).
				Str("item_id", item.ID).
				Str("item_type", string(item.Type)).
				Str("source", item.Source).
				Msg("dropping malformed candidate")
			continue
		}
		breakdown := e.scorer.Score(item, profile, now)
		scored = append(scored, Recommendation{
			Item:    item,
			Score:   breakdown,
			Tier:    e.scorer.Tier(item, now),
			Reasons: BuildReasons(item, breakdown, profile, now),
		})
	}

	set := &RecommendationSet{
		UserID:     userID,
		Items:      SelectTop(scored, e.cfg.SelectionLimit),
		Sources:    statuses,
		ComputedAt: now,
		ValidUntil: now.Add(e.cfg.SetTTL),
	}

	elapsed := e.now().Sub(start)
	metrics.ComputeDuration.Observe(elapsed.Seconds())
	metrics.ComputesTotal.WithLabelValues("ok").Inc()

	e.logger.Info().
		Str("user_id", userID).
		Int("candidates", len(candidates)).
		Int("selected", len(set.Items)).
		Dur("elapsed", elapsed).
		Msg("recommendation set computed")

	return set, nil
}

// fetchProfile returns the user's profile, or an empty one when the
// source is missing or failing. Profile data improves fit scoring but is
// never required to produce recommendations.
func (e *Engine) fetchProfile(ctx context.Context, userID string) Profile {
	if e.profiles == nil {
		return Profile{UserID: userID}
	}
	profile, err := e.profiles.Profile(ctx, userID)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("profile fetch failed, scoring with neutral fit")
		return Profile{UserID: userID}
	}
	return profile
}
