// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package providers adapts the learning-platform API into candidate
// sources for the recommendation engine.
//
// A single PlatformClient talks to the upstream REST API; a circuit
// breaker wraps it so a failing upstream is cut off instead of dragging
// every aggregation to its timeout. Each provider adapter turns one
// upstream dataset (course selections, catalog, project tasks, goals,
// study reports, exams, profile) into recommend.CandidateItem values.
package providers
