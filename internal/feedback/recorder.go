// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package feedback

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nextup/nextup/internal/metrics"
)

// Config holds recorder settings.
type Config struct {
	// QueueSize is the bounded event queue capacity. Events arriving
	// while the queue is full are dropped.
	QueueSize int
}

// DefaultConfig returns the standard recorder configuration.
func DefaultConfig() Config {
	return Config{QueueSize: 1024}
}

// Recorder accepts feedback events on a bounded queue and persists them
// on a background worker.
//
// Thread safety: Record is safe for concurrent use. Run must be called
// exactly once.
type Recorder struct {
	store  Store
	queue  chan Event
	logger zerolog.Logger
}

// NewRecorder creates a feedback recorder backed by the given store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecorder(store Store, cfg Config, logger zerolog.Logger) *Recorder {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultConfig().QueueSize
	}
	return &Recorder{
		store:  store,
		queue:  make(chan Event, size),
		logger: logger.With().Str("component", "feedback").Logger(),
	}
}

// Record enqueues an event for asynchronous persistence. It never blocks;
// when the queue is full the event is dropped and counted.
func (r *Recorder) Record(event Event) {
	select {
	case r.queue <- event:
		metrics.FeedbackEvents.WithLabelValues(string(event.Type), "accepted").Inc()
		metrics.FeedbackQueueDepth.Set(float64(len(r.queue)))
	default:
		metrics.FeedbackEvents.WithLabelValues(string(event.Type), "dropped").Inc()
		r.logger.Warn().
			Str("recommendation_id", event.RecommendationID).
			Str("event_type", string(event.Type)).
			Msg("feedback queue full, dropping event")
	}
}

// Run drains the queue until the context is cancelled, then flushes any
// remaining events before returning. Store failures are logged and
// counted but never propagated.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case event := <-r.queue:
			r.persist(ctx, event)
		}
	}
}

// drain flushes events still queued at shutdown.
func (r *Recorder) drain() {
	for {
		select {
		case event := <-r.queue:
			r.persist(context.Background(), event)
		default:
			return
		}
	}
}

func (r *Recorder) persist(ctx context.Context, event Event) {
	metrics.FeedbackQueueDepth.Set(float64(len(r.queue)))
	if err := r.store.Save(ctx, event); err != nil {
		metrics.FeedbackEvents.WithLabelValues(string(event.Type), "store_error").Inc()
		r.logger.Error().
			Err(err).
			Str("recommendation_id", event.RecommendationID).
			Str("event_type", string(event.Type)).
			Msg("failed to persist feedback event")
	}
}

// QueueDepth returns the number of events waiting to be persisted.
func (r *Recorder) QueueDepth() int {
	return len(r.queue)
}
