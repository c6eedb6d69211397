// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockRefresher counts sweep invocations.
type mockRefresher struct {
	sweeps atomic.Int32
}

func (m *mockRefresher) RefreshAhead() int {
	m.sweeps.Add(1)
	return 0
}

func TestRefreshServiceSweepsOnInterval(t *testing.T) {
	cache := &mockRefresher{}
	svc := NewRefreshService(cache, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for cache.sweeps.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
	if cache.sweeps.Load() < 2 {
		t.Errorf("sweeps = %d, want at least 2", cache.sweeps.Load())
	}
}

func TestRefreshServiceDefaultsInterval(t *testing.T) {
	svc := NewRefreshService(&mockRefresher{}, 0)
	if svc.interval != time.Minute {
		t.Errorf("interval = %s, want 1m default", svc.interval)
	}
}

func TestRefreshServiceString(t *testing.T) {
	svc := NewRefreshService(&mockRefresher{}, time.Minute)
	if got := svc.String(); got != "cache-refresh" {
		t.Errorf("String = %q, want cache-refresh", got)
	}
}
