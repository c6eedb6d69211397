// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package recommend

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// maxReasons caps the justifications attached to a recommendation.
const maxReasons = 3

// BuildReasons derives human-readable justifications from a candidate's
// attributes and its stored breakdown. Reasons follow factor contribution
// order (sub-score times weight, descending), so the strongest driver of
// the composite score is always stated first.
func BuildReasons(item CandidateItem, breakdown ScoreBreakdown, profile Profile, now time.Time) []string {
	type factorReason struct {
		contribution float64
		order        int
		text         string
	}

	candidates := make([]factorReason, 0, 4)

	if text := urgencyReason(item, now); text != "" {
		candidates = append(candidates, factorReason{
			contribution: breakdown.Urgency * breakdown.Weights.Urgency,
			order:        0,
			text:         text,
		})
	}
	if text := importanceReason(item.Attributes); text != "" {
		candidates = append(candidates, factorReason{
			contribution: breakdown.Importance * breakdown.Weights.Importance,
			order:        1,
			text:         text,
		})
	}
	if text := fitReason(item.Attributes.Tags, profile); text != "" {
		candidates = append(candidates, factorReason{
			contribution: breakdown.PersonalFit * breakdown.Weights.PersonalFit,
			order:        2,
			text:         text,
		})
	}
	if text := growthReason(item.Attributes); text != "" {
		candidates = append(candidates, factorReason{
			contribution: breakdown.GrowthValue * breakdown.Weights.GrowthValue,
			order:        3,
			text:         text,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].contribution != candidates[j].contribution {
			return candidates[i].contribution > candidates[j].contribution
		}
		return candidates[i].order < candidates[j].order
	})

	n := len(candidates)
	if n > maxReasons {
		n = maxReasons
	}
	reasons := make([]string, 0, n)
	for _, c := range candidates[:n] {
		reasons = append(reasons, c.text)
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "scores well across all factors")
	}
	return reasons
}

func urgencyReason(item CandidateItem, now time.Time) string {
	if item.Deadline == nil {
		return ""
	}
	remaining := item.Deadline.Sub(now)
	if remaining <= 0 {
		return "deadline has passed"
	}
	return "due in " + humanizeDuration(remaining)
}

func importanceReason(attrs Attributes) string {
	switch {
	case attrs.Mandatory:
		return "required for your role"
	case attrs.Popularity > 0:
		return fmt.Sprintf("%d peers completed this", attrs.Popularity)
	case attrs.Bonus > 0:
		return fmt.Sprintf("earns %.0f bonus points", attrs.Bonus)
	case attrs.Audience == "all":
		return "relevant to everyone on the platform"
	default:
		return ""
	}
}

func fitReason(tags []string, profile Profile) string {
	matched := matchedTags(tags, profile)
	if len(matched) == 0 {
		return ""
	}
	if len(matched) > maxReasons {
		matched = matched[:maxReasons]
	}
	return "matches your interests: " + strings.Join(matched, ", ")
}

func growthReason(attrs Attributes) string {
	switch {
	case attrs.GrowthSignal >= 0.6:
		return "high growth value for your skills"
	case attrs.EffortHours > 0 && attrs.EffortHours <= quickWinMaxHours:
		return fmt.Sprintf("quick win, about %.0fh of effort", attrs.EffortHours)
	default:
		return ""
	}
}

// humanizeDuration renders a remaining duration in the coarsest unit that
// keeps it readable: hours below two days, days otherwise.
func humanizeDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours < 1 {
		return "less than an hour"
	}
	if hours == 1 {
		return "1 hour"
	}
	if hours < 48 {
		return fmt.Sprintf("%d hours", hours)
	}
	days := hours / 24
	return fmt.Sprintf("%d days", days)
}

// BuildExplanation assembles the detail view for one recommendation from
// its stored breakdown. Nothing is rescored; the factors shown are exactly
// the ones that produced the ranking.
func BuildExplanation(rec *Recommendation, computedAt time.Time) Explanation {
	b := rec.Score
	return Explanation{
		RecommendationID: rec.Item.ID,
		Title:            rec.Item.Title,
		Tier:             rec.Tier,
		Total:            b.Total,
		Factors: []ExplanationFactor{
			{Name: "urgency", Weight: b.Weights.Urgency, Score: b.Urgency, Contribution: b.Urgency * b.Weights.Urgency},
			{Name: "importance", Weight: b.Weights.Importance, Score: b.Importance, Contribution: b.Importance * b.Weights.Importance},
			{Name: "personal_fit", Weight: b.Weights.PersonalFit, Score: b.PersonalFit, Contribution: b.PersonalFit * b.Weights.PersonalFit},
			{Name: "growth_value", Weight: b.Weights.GrowthValue, Score: b.GrowthValue, Contribution: b.GrowthValue * b.Weights.GrowthValue},
		},
		Reasons:    rec.Reasons,
		ComputedAt: computedAt,
	}
}
