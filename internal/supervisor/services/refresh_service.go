// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package services

import (
	"context"
	"time"

	"github.com/nextup/nextup/internal/logging"
)

// Refresher is the cache surface the refresh sweep drives.
type Refresher interface {
	// RefreshAhead starts background recomputation for cached sets
	// nearing expiry and returns how many were started.
	RefreshAhead() int
}

// RefreshService periodically sweeps the recommendation cache so sets
// are recomputed shortly before they expire instead of on the next
// user request.
type RefreshService struct {
	cache    Refresher
	interval time.Duration
	name     string
}

// NewRefreshService creates the refresh sweep service.
func NewRefreshService(cache Refresher, interval time.Duration) *RefreshService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RefreshService{
		cache:    cache,
		interval: interval,
		name:     "cache-refresh",
	}
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if started := s.cache.RefreshAhead(); started > 0 {
				logging.Debug().
					Int("started", started).
					Msg("refresh sweep started background recomputations")
			}
		}
	}
}

// String implements fmt.Stringer for suture's event log.
func (s *RefreshService) String() string {
	return s.name
}
