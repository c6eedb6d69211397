// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package recommend

import (
	"strings"
	"time"
)

// TierThresholds are the hours-to-deadline boundaries for urgency tiers
// and the urgency step function.
type TierThresholds struct {
	// CriticalHours is the upper bound for the critical tier.
	CriticalHours float64 `json:"critical_hours"`

	// HighHours is the upper bound for the high tier.
	HighHours float64 `json:"high_hours"`

	// MediumHours is the upper bound for the medium tier.
	MediumHours float64 `json:"medium_hours"`

	// LowHours is the upper bound for elevated low-tier urgency.
	// Beyond it the deadline contributes only the floor score.
	LowHours float64 `json:"low_hours"`
}

// DefaultTierThresholds returns the standard tier boundaries:
// 1 day, 3 days, 1 week, 30 days.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		CriticalHours: 24,
		HighHours:     72,
		MediumHours:   168,
		LowHours:      720,
	}
}

// Validate checks that the boundaries are positive and strictly increasing.
func (t TierThresholds) Validate() error {
	if t.CriticalHours <= 0 || t.HighHours <= t.CriticalHours ||
		t.MediumHours <= t.HighHours || t.LowHours <= t.MediumHours {
		return errInvalidThresholds
	}
	return nil
}

// Urgency step scores per threshold band.
const (
	urgencyOverdue    = 100.0
	urgencyCritical   = 95.0
	urgencyHigh       = 85.0
	urgencyMedium     = 70.0
	urgencyLow        = 50.0
	urgencyFloor      = 30.0
	urgencyNoDeadline = 25.0
)

// Importance scoring constants.
const (
	importanceBase     = 50.0
	mandatoryBonus     = 25.0
	audienceAllBonus   = 10.0
	popularityCap      = 15.0
	popularityPerPeer  = 1.5
	rewardBonusCap     = 10.0
	rewardBonusDivisor = 10.0
)

// Fit and growth scoring constants.
const (
	fitNeutral       = 50.0
	fitOverlapWeight = 50.0
	quickWinBonus    = 10.0
	quickWinMaxHours = 8.0
)

// Scorer computes score breakdowns for candidates. It is pure: the same
// candidate, profile, and clock always produce the same breakdown.
type Scorer struct {
	weights Weights
	tiers   TierThresholds
}

// NewScorer creates a scorer with validated weights and thresholds.
func NewScorer(weights Weights, tiers TierThresholds) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, tiers: tiers}, nil
}

// Weights returns the scorer's factor weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the full breakdown for one candidate. The now argument is
// the evaluation clock; callers pass a single timestamp for a whole batch
// so every candidate is scored against the same instant.
func (s *Scorer) Score(item CandidateItem, profile Profile, now time.Time) ScoreBreakdown {
	b := ScoreBreakdown{
		Urgency:     s.urgencyScore(item.Deadline, now),
		Importance:  importanceScore(item.Attributes),
		PersonalFit: fitScore(item.Attributes.Tags, profile),
		GrowthValue: growthScore(item.Attributes),
		Weights:     s.weights,
	}
	b.Total = b.Urgency*s.weights.Urgency +
		b.Importance*s.weights.Importance +
		b.PersonalFit*s.weights.PersonalFit +
		b.GrowthValue*s.weights.GrowthValue
	return b
}

// Tier buckets a candidate by deadline proximity. Candidates without a
// deadline are always low tier.
func (s *Scorer) Tier(item CandidateItem, now time.Time) UrgencyTier {
	if item.Deadline == nil {
		return TierLow
	}
	hours := item.Deadline.Sub(now).Hours()
	switch {
	case hours <= s.tiers.CriticalHours:
		return TierCritical
	case hours <= s.tiers.HighHours:
		return TierHigh
	case hours <= s.tiers.MediumHours:
		return TierMedium
	default:
		return TierLow
	}
}

// urgencyScore is a monotone decreasing step function of hours-to-deadline.
// Overdue deadlines score maximum urgency rather than dropping off.
func (s *Scorer) urgencyScore(deadline *time.Time, now time.Time) float64 {
	if deadline == nil {
		return urgencyNoDeadline
	}
	hours := deadline.Sub(now).Hours()
	switch {
	case hours <= 0:
		return urgencyOverdue
	case hours <= s.tiers.CriticalHours:
		return urgencyCritical
	case hours <= s.tiers.HighHours:
		return urgencyHigh
	case hours <= s.tiers.MediumHours:
		return urgencyMedium
	case hours <= s.tiers.LowHours:
		return urgencyLow
	default:
		return urgencyFloor
	}
}

// importanceScore combines mandatory status, audience breadth, peer
// popularity, and point rewards.
func importanceScore(attrs Attributes) float64 {
	score := importanceBase
	if attrs.Mandatory {
		score += mandatoryBonus
	}
	if attrs.Audience == "all" {
		score += audienceAllBonus
	}
	if attrs.Popularity > 0 {
		score += minFloat(popularityCap, float64(attrs.Popularity)*popularityPerPeer)
	}
	if attrs.Bonus > 0 {
		score += minFloat(rewardBonusCap, attrs.Bonus/rewardBonusDivisor)
	}
	return clampScore(score)
}

// fitScore measures tag overlap with the user's skills and interests.
// Without profile data or tags it returns the neutral score, so sparse
// profiles neither help nor hurt a candidate.
func fitScore(tags []string, profile Profile) float64 {
	if profile.Empty() || len(tags) == 0 {
		return fitNeutral
	}

	wanted := make(map[string]struct{}, len(profile.Skills)+len(profile.Interests))
	for _, s := range profile.Skills {
		wanted[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range profile.Interests {
		wanted[strings.ToLower(s)] = struct{}{}
	}

	matched := 0
	for _, tag := range tags {
		if _, ok := wanted[strings.ToLower(tag)]; ok {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(tags))
	return clampScore(fitNeutral + fitOverlapWeight*ratio)
}

// growthScore scales the provider's growth signal, with a small bonus for
// actions achievable in a single sitting.
func growthScore(attrs Attributes) float64 {
	score := clampScore(attrs.GrowthSignal * 100)
	if attrs.EffortHours > 0 && attrs.EffortHours <= quickWinMaxHours {
		score = clampScore(score + quickWinBonus)
	}
	return score
}

// matchedTags returns the candidate tags present in the profile, in
// candidate tag order. Used by the explanation builder.
func matchedTags(tags []string, profile Profile) []string {
	if profile.Empty() || len(tags) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(profile.Skills)+len(profile.Interests))
	for _, s := range profile.Skills {
		wanted[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range profile.Interests {
		wanted[strings.ToLower(s)] = struct{}{}
	}
	var matched []string
	for _, tag := range tags {
		if _, ok := wanted[strings.ToLower(tag)]; ok {
			matched = append(matched, tag)
		}
	}
	return matched
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
