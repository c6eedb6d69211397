// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nextup/nextup/internal/logging"
)

// mockStore implements Store in memory with an optional failure mode.
type mockStore struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *mockStore) Save(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockStore) ByRecommendation(_ context.Context, recommendationID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.RecommendationID == recommendationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events), nil
}

func (m *mockStore) saved() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRecorderPersistsEvents(t *testing.T) {
	store := &mockStore{}
	r := NewRecorder(store, DefaultConfig(), logging.NewTestLogger(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	r.Record(NewEvent("rec-1", "u1", EventClick))
	r.Record(NewEvent("rec-1", "u1", EventDismiss))

	waitFor(t, func() bool { return len(store.saved()) == 2 }, "events were not persisted")

	cancel()
	<-done
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	store := &mockStore{}
	r := NewRecorder(store, Config{QueueSize: 2}, logging.NewTestLogger(nil))

	// No worker running, so the queue fills and the third event drops.
	r.Record(NewEvent("rec-1", "u1", EventClick))
	r.Record(NewEvent("rec-2", "u1", EventClick))
	r.Record(NewEvent("rec-3", "u1", EventClick))

	if got := r.QueueDepth(); got != 2 {
		t.Errorf("QueueDepth = %d, want 2", got)
	}
}

func TestRecorderDrainsOnShutdown(t *testing.T) {
	store := &mockStore{}
	r := NewRecorder(store, DefaultConfig(), logging.NewTestLogger(nil))

	r.Record(NewEvent("rec-1", "u1", EventClick))
	r.Record(NewEvent("rec-2", "u1", EventActionTaken))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	if got := len(store.saved()); got != 2 {
		t.Errorf("got %d persisted events after drain, want 2", got)
	}
}

func TestRecorderSurvivesStoreErrors(t *testing.T) {
	store := &mockStore{err: errors.New("disk full")}
	r := NewRecorder(store, DefaultConfig(), logging.NewTestLogger(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	r.Record(NewEvent("rec-1", "u1", EventClick))

	waitFor(t, func() bool { return r.QueueDepth() == 0 }, "event was not consumed")

	// The worker keeps running after a store failure.
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	r.Record(NewEvent("rec-2", "u1", EventClick))

	waitFor(t, func() bool { return len(store.saved()) == 1 }, "recorder stopped after store error")

	cancel()
	<-done
}
