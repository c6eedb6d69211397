// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package feedback records user reactions to recommendations. Events are
// accepted on a bounded queue and persisted asynchronously; recording
// never blocks or fails a user request.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType classifies a user's reaction to a recommendation.
type EventType string

// Supported feedback event types.
const (
	EventClick       EventType = "click"
	EventDismiss     EventType = "dismiss"
	EventActionTaken EventType = "action_taken"
)

// Valid reports whether the event type is one of the supported values.
func (e EventType) Valid() bool {
	switch e {
	case EventClick, EventDismiss, EventActionTaken:
		return true
	default:
		return false
	}
}

// Event is a single recorded feedback signal.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// RecommendationID is the recommendation the event refers to.
	RecommendationID string `json:"recommendation_id"`

	// UserID is the user who reacted.
	UserID string `json:"user_id"`

	// Type is the kind of reaction.
	Type EventType `json:"type"`

	// CreatedAt is when the event was accepted.
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent builds an event with a fresh ID and timestamp.
func NewEvent(recommendationID, userID string, eventType EventType) Event {
	return Event{
		ID:               uuid.NewString(),
		RecommendationID: recommendationID,
		UserID:           userID,
		Type:             eventType,
		CreatedAt:        time.Now().UTC(),
	}
}

// Store persists feedback events.
type Store interface {
	// Save persists one event.
	Save(ctx context.Context, event Event) error

	// ByRecommendation returns all stored events for a recommendation.
	ByRecommendation(ctx context.Context, recommendationID string) ([]Event, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
}

// Key prefix for BadgerDB storage.
const feedbackKeyPrefix = "feedback:"

// BadgerStore implements Store using BadgerDB for durable storage.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

// NewBadgerStore creates a BadgerDB-backed feedback store. Events expire
// after the retention period; a non-positive retention keeps them
// indefinitely.
func NewBadgerStore(db *badger.DB, retention time.Duration) *BadgerStore {
	return &BadgerStore{db: db, retention: retention}
}

// Save persists one event, keyed by recommendation and event ID so all
// events for a recommendation share a prefix.
func (s *BadgerStore) Save(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}

	key := []byte(feedbackKeyPrefix + event.RecommendationID + ":" + event.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		return txn.SetEntry(e)
	})
}

// ByRecommendation returns all stored events for a recommendation.
func (s *BadgerStore) ByRecommendation(_ context.Context, recommendationID string) ([]Event, error) {
	var events []Event

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackKeyPrefix + recommendationID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var event Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return fmt.Errorf("unmarshal feedback event: %w", err)
			}
			events = append(events, event)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of stored events.
func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(feedbackKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
