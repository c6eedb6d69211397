// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package recommend implements the recommendation core: candidate
// aggregation from upstream sources, multi-factor scoring, diversity
// selection, and explanation building.
//
// The pipeline is deterministic end to end. Scoring takes the evaluation
// time as an explicit argument, candidate order follows provider
// registration order, and selection breaks ties by deadline proximity and
// first-seen position. Given the same candidates, profile, and clock, the
// engine always produces the same recommendation set.
package recommend
