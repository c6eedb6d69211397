// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package recommend

import (
	"sort"
)

// DefaultSelectionLimit is the standard number of recommendations per set.
const DefaultSelectionLimit = 3

// SelectTop picks up to limit recommendations by descending composite
// score, with at most one item per type. When the candidate pool has fewer
// distinct types than limit, remaining slots are filled by score order so
// the user still gets a full set.
//
// Ties break by nearer deadline first (a deadline beats no deadline), then
// by input position. The input slice is not modified.
func SelectTop(candidates []Recommendation, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultSelectionLimit
	}
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]indexedRec, len(candidates))
	for i, c := range candidates {
		ranked[i] = indexedRec{rec: c, pos: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})

	distinct := make(map[ItemType]struct{}, len(ranked))
	for _, r := range ranked {
		distinct[r.rec.Item.Type] = struct{}{}
	}

	// First pass: best item of each type, in rank order.
	selected := make([]Recommendation, 0, limit)
	taken := make(map[int]struct{}, limit)
	seenTypes := make(map[ItemType]struct{}, limit)
	for _, r := range ranked {
		if len(selected) == limit {
			break
		}
		if _, dup := seenTypes[r.rec.Item.Type]; dup {
			continue
		}
		seenTypes[r.rec.Item.Type] = struct{}{}
		taken[r.pos] = struct{}{}
		selected = append(selected, r.rec)
	}

	// Second pass: only when the pool cannot supply one item per slot
	// from distinct types, fill the remainder by rank.
	if len(selected) < limit && len(distinct) < limit {
		for _, r := range ranked {
			if len(selected) == limit {
				break
			}
			if _, dup := taken[r.pos]; dup {
				continue
			}
			taken[r.pos] = struct{}{}
			selected = append(selected, r.rec)
		}
	}

	return selected
}

type indexedRec struct {
	rec Recommendation
	pos int
}

// rankLess orders by total score descending, then nearer deadline, then
// input position. Deterministic for any input.
func rankLess(a, b indexedRec) bool {
	if a.rec.Score.Total != b.rec.Score.Total {
		return a.rec.Score.Total > b.rec.Score.Total
	}
	ad, bd := a.rec.Item.Deadline, b.rec.Item.Deadline
	switch {
	case ad != nil && bd != nil:
		if !ad.Equal(*bd) {
			return ad.Before(*bd)
		}
	case ad != nil:
		return true
	case bd != nil:
		return false
	}
	return a.pos < b.pos
}
