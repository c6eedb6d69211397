// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package recommend

import (
	"time"
)

// ItemType classifies a candidate action. The selector enforces diversity
// across types, so each type should represent a distinct kind of action.
type ItemType string

const (
	// TypeCourseUrgent is an enrolled course with an approaching deadline.
	TypeCourseUrgent ItemType = "course_urgent"
	// TypeCoursePopular is a popular course the user has not taken.
	TypeCoursePopular ItemType = "course_popular"
	// TypeTaskClaim is an unclaimed project task.
	TypeTaskClaim ItemType = "task_claim"
	// TypeGoalTalk is an overdue goal check-in.
	TypeGoalTalk ItemType = "goal_talk"
	// TypeReportTime is a study-hours shortfall nudge.
	TypeReportTime ItemType = "report_time"
	// TypeProfileComplete is an incomplete-profile nudge.
	TypeProfileComplete ItemType = "profile_complete"
	// TypeExamPublish is a newly published exam.
	TypeExamPublish ItemType = "exam_publish"
	// TypeCoursePublish is a newly published course.
	TypeCoursePublish ItemType = "course_publish"
)

// Valid reports whether the item type is a known value.
func (t ItemType) Valid() bool {
	switch t {
	case TypeCourseUrgent, TypeCoursePopular, TypeTaskClaim, TypeGoalTalk,
		TypeReportTime, TypeProfileComplete, TypeExamPublish, TypeCoursePublish:
		return true
	default:
		return false
	}
}

// UrgencyTier buckets a recommendation by deadline proximity.
type UrgencyTier string

const (
	// TierCritical indicates a deadline within the critical threshold.
	TierCritical UrgencyTier = "critical"
	// TierHigh indicates a deadline within the high threshold.
	TierHigh UrgencyTier = "high"
	// TierMedium indicates a deadline within the medium threshold.
	TierMedium UrgencyTier = "medium"
	// TierLow indicates a distant or absent deadline.
	TierLow UrgencyTier = "low"
)

// Attributes carries the raw signals a provider attaches to a candidate.
// The scorer reads these; nothing mutates them after aggregation.
type Attributes struct {
	// Mandatory marks an action required for the user's role.
	Mandatory bool `json:"mandatory,omitempty"`

	// Audience is who the action targets ("all" or a role name).
	Audience string `json:"audience,omitempty"`

	// Popularity counts peers who completed or claimed the item.
	Popularity int `json:"popularity,omitempty"`

	// Tags are topic labels matched against the user's profile.
	Tags []string `json:"tags,omitempty"`

	// GrowthSignal estimates skill-development value in [0, 1].
	GrowthSignal float64 `json:"growth_signal,omitempty"`

	// EffortHours estimates the time to complete the action.
	EffortHours float64 `json:"effort_hours,omitempty"`

	// Bonus is the point reward for completing the action, if any.
	Bonus float64 `json:"bonus,omitempty"`
}

// CandidateItem is one possible action fetched from an upstream source.
// Candidates are immutable once returned by a provider.
type CandidateItem struct {
	// ID uniquely identifies the candidate across all sources.
	ID string `json:"id"`

	// Type classifies the action for diversity selection.
	Type ItemType `json:"type"`

	// Title is the short user-facing label.
	Title string `json:"title"`

	// Description is the longer user-facing text.
	Description string `json:"description,omitempty"`

	// ActionLabel is the call-to-action text ("Continue course").
	ActionLabel string `json:"action_label,omitempty"`

	// ActionTarget is the frontend route or URL the action opens.
	ActionTarget string `json:"action_target,omitempty"`

	// Deadline is when the action expires, nil when open-ended.
	Deadline *time.Time `json:"deadline,omitempty"`

	// Attributes holds the raw scoring signals.
	Attributes Attributes `json:"attributes"`

	// Source is the name of the provider that produced the candidate.
	Source string `json:"source,omitempty"`
}

// Weights are the scoring factor weights. They must sum to 1.0.
type Weights struct {
	// Urgency weights deadline proximity.
	Urgency float64 `json:"urgency"`

	// Importance weights mandatory status, audience, and popularity.
	Importance float64 `json:"importance"`

	// PersonalFit weights overlap with the user's skills and interests.
	PersonalFit float64 `json:"personal_fit"`

	// GrowthValue weights skill-development potential.
	GrowthValue float64 `json:"growth_value"`
}

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{
		Urgency:     0.35,
		Importance:  0.30,
		PersonalFit: 0.25,
		GrowthValue: 0.10,
	}
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.Urgency + w.Importance + w.PersonalFit + w.GrowthValue
}

// Validate checks that all weights are non-negative and sum to 1.0
// within a small tolerance.
func (w Weights) Validate() error {
	if w.Urgency < 0 || w.Importance < 0 || w.PersonalFit < 0 || w.GrowthValue < 0 {
		return ErrNegativeWeight
	}
	if diff := w.Sum() - 1.0; diff > weightSumTolerance || diff < -weightSumTolerance {
		return ErrWeightSum
	}
	return nil
}

// weightSumTolerance absorbs float accumulation error in weight sums.
const weightSumTolerance = 1e-9

// ScoreBreakdown is the full scoring result for one candidate. The stored
// breakdown is the single source of truth for both ranking and explanation.
type ScoreBreakdown struct {
	// Urgency is the deadline-proximity sub-score (0-100).
	Urgency float64 `json:"urgency"`

	// Importance is the mandatory/audience/popularity sub-score (0-100).
	Importance float64 `json:"importance"`

	// PersonalFit is the profile-overlap sub-score (0-100).
	PersonalFit float64 `json:"personal_fit"`

	// GrowthValue is the skill-development sub-score (0-100).
	GrowthValue float64 `json:"growth_value"`

	// Weights are the factor weights applied to the sub-scores.
	Weights Weights `json:"weights"`

	// Total is the weighted composite: sum of sub-score times weight.
	Total float64 `json:"total"`
}

// Recommendation is a scored, explained candidate.
type Recommendation struct {
	// Item is the underlying candidate.
	Item CandidateItem `json:"item"`

	// Score is the full breakdown used for ranking.
	Score ScoreBreakdown `json:"score"`

	// Tier is the urgency bucket at computation time.
	Tier UrgencyTier `json:"tier"`

	// Reasons are one to three human-readable justifications, ordered by
	// contribution to the composite score.
	Reasons []string `json:"reasons"`
}

// SourceStatus records the outcome of one provider call during aggregation.
type SourceStatus struct {
	// Name is the provider name.
	Name string `json:"name"`

	// Status is "ok", "timeout", or "error".
	Status string `json:"status"`

	// Count is the number of candidates the provider returned.
	Count int `json:"count"`

	// DurationMS is how long the provider call took.
	DurationMS int64 `json:"duration_ms"`

	// Error holds the failure detail for non-ok statuses.
	Error string `json:"error,omitempty"`
}

// RecommendationSet is the per-user computation result. The stored set is
// immutable; staleness is marked on the copy served to the caller.
type RecommendationSet struct {
	// UserID is the user the set was computed for.
	UserID string `json:"user_id"`

	// Items are the selected recommendations, at most three, ranked.
	Items []Recommendation `json:"items"`

	// Sources records the per-provider aggregation outcomes.
	Sources []SourceStatus `json:"sources,omitempty"`

	// ComputedAt is when the set was computed.
	ComputedAt time.Time `json:"computed_at"`

	// ValidUntil is when the set becomes stale.
	ValidUntil time.Time `json:"valid_until"`

	// Stale marks a set served past ValidUntil while a refresh runs.
	Stale bool `json:"stale"`
}

// Find returns the recommendation with the given ID, or nil.
func (s *RecommendationSet) Find(recID string) *Recommendation {
	for i := range s.Items {
		if s.Items[i].Item.ID == recID {
			return &s.Items[i]
		}
	}
	return nil
}

// Profile holds the user attributes used for personal-fit scoring.
// A zero Profile scores every candidate neutrally.
type Profile struct {
	// UserID is the profile owner.
	UserID string `json:"user_id"`

	// Skills the user already has.
	Skills []string `json:"skills,omitempty"`

	// Interests the user declared.
	Interests []string `json:"interests,omitempty"`
}

// Empty reports whether the profile carries no fit signals.
func (p Profile) Empty() bool {
	return len(p.Skills) == 0 && len(p.Interests) == 0
}

// ExplanationFactor is one scoring factor in an explanation view.
type ExplanationFactor struct {
	// Name is the factor name ("urgency", "importance", ...).
	Name string `json:"name"`

	// Weight is the factor weight applied.
	Weight float64 `json:"weight"`

	// Score is the raw sub-score (0-100).
	Score float64 `json:"score"`

	// Contribution is Score times Weight.
	Contribution float64 `json:"contribution"`
}

// Explanation is the on-demand detail view for one recommendation. It is
// built entirely from the stored breakdown, never recomputed, so it always
// matches the score the user was shown.
type Explanation struct {
	// RecommendationID is the explained recommendation.
	RecommendationID string `json:"recommendation_id"`

	// Title is the recommendation title.
	Title string `json:"title"`

	// Tier is the urgency bucket.
	Tier UrgencyTier `json:"tier"`

	// Total is the composite score.
	Total float64 `json:"total"`

	// Factors lists each factor with its weight and contribution.
	Factors []ExplanationFactor `json:"factors"`

	// Reasons are the same justifications attached at computation time.
	Reasons []string `json:"reasons"`

	// ComputedAt is when the underlying set was computed.
	ComputedAt time.Time `json:"computed_at"`
}
