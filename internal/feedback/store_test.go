// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewBadgerStore(db, 30*24*time.Hour)
}

func TestEventTypeValid(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      bool
	}{
		{EventClick, true},
		{EventDismiss, true},
		{EventActionTaken, true},
		{EventType("upvote"), false},
		{EventType(""), false},
	}

	for _, tt := range tests {
		if got := tt.eventType.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}

func TestBadgerStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e1 := NewEvent("rec-1", "u1", EventClick)
	e2 := NewEvent("rec-1", "u1", EventActionTaken)
	e3 := NewEvent("rec-2", "u2", EventDismiss)

	for _, e := range []Event{e1, e2, e3} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	events, err := store.ByRecommendation(ctx, "rec-1")
	if err != nil {
		t.Fatalf("ByRecommendation: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events for rec-1, want 2", len(events))
	}
	for _, e := range events {
		if e.RecommendationID != "rec-1" {
			t.Errorf("RecommendationID = %q, want rec-1", e.RecommendationID)
		}
		if e.UserID != "u1" {
			t.Errorf("UserID = %q, want u1", e.UserID)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestBadgerStoreUnknownRecommendation(t *testing.T) {
	store := newTestStore(t)

	events, err := store.ByRecommendation(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ByRecommendation: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestNewEventPopulatesFields(t *testing.T) {
	before := time.Now().UTC()
	e := NewEvent("rec-1", "u1", EventClick)
	after := time.Now().UTC()

	if e.ID == "" {
		t.Error("expected a generated event ID")
	}
	if e.CreatedAt.Before(before) || e.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, want between %v and %v", e.CreatedAt, before, after)
	}

	other := NewEvent("rec-1", "u1", EventClick)
	if e.ID == other.ID {
		t.Error("expected unique event IDs")
	}
}
