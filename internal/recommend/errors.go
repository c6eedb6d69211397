// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// errors.go - Sentinel errors for the recommendation pipeline.
package recommend

import "errors"

var (
	// ErrProviderTimeout indicates a provider exceeded its per-call timeout.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrAllProvidersFailed indicates no provider returned any data.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrUpstreamUnavailable indicates no recommendations can be served:
	// every provider failed and no cached set exists to fall back on.
	ErrUpstreamUnavailable = errors.New("recommendations temporarily unavailable")

	// ErrNotFound indicates the recommendation ID is not in the user's
	// current set.
	ErrNotFound = errors.New("recommendation not found")

	// ErrExplanationExpired indicates the user has no current set, so the
	// recommendation's scoring data is gone.
	ErrExplanationExpired = errors.New("explanation no longer available")

	// ErrNegativeWeight indicates a scoring weight below zero.
	ErrNegativeWeight = errors.New("scoring weights must be non-negative")

	// ErrWeightSum indicates scoring weights that do not sum to 1.0.
	ErrWeightSum = errors.New("scoring weights must sum to 1.0")

	// errInvalidThresholds indicates tier boundaries that are not
	// positive and strictly increasing.
	errInvalidThresholds = errors.New("tier thresholds must be positive and increasing")
)
