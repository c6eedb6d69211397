// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package api exposes the recommendation service over HTTP using the
// Chi router. All endpoints speak the models.APIResponse envelope.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nextup/nextup/internal/feedback"
	"github.com/nextup/nextup/internal/logging"
	"github.com/nextup/nextup/internal/models"
	"github.com/nextup/nextup/internal/recommend"
)

// timeNow is the clock; replaced in tests.
var timeNow = time.Now

// maxFeedbackBodySize bounds the feedback request body.
const maxFeedbackBodySize = 4 * 1024

// userIDHeader carries the authenticated user, set by the platform
// gateway in front of this service.
const userIDHeader = "X-User-ID"

// RecommendationCache is the cache surface the handlers consume.
// Implemented by cache.Manager; mocked in tests.
type RecommendationCache interface {
	// Get returns the user's recommendation set, computing it on demand.
	Get(ctx context.Context, userID string, force bool) (*recommend.RecommendationSet, error)

	// Explain returns the stored score breakdown for a recommendation.
	Explain(userID, recID string) (recommend.Explanation, error)

	// Contains reports whether the recommendation is in the user's
	// current set.
	Contains(userID, recID string) bool

	// Invalidate expires the user's cached set.
	Invalidate(userID string) bool

	// Len returns the number of cached user sets.
	Len() int
}

// FeedbackRecorder is the feedback surface the handlers consume.
type FeedbackRecorder interface {
	// Record enqueues a feedback event. Never blocks or fails.
	Record(event feedback.Event)

	// QueueDepth returns the number of events awaiting persistence.
	QueueDepth() int
}

// Handler serves the recommendation endpoints.
type Handler struct {
	cache    RecommendationCache
	recorder FeedbackRecorder
	version  string
}

// NewHandler creates the API handler.
func NewHandler(cache RecommendationCache, recorder FeedbackRecorder, version string) *Handler {
	return &Handler{cache: cache, recorder: recorder, version: version}
}

// requireUserID extracts the user from the request header, responding
// with a validation error when absent.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "X-User-ID header is required", nil)
		return "", false
	}
	return userID, true
}

// GetRecommendations handles GET /api/v1/recommendations.
//
// Query parameters:
//   - refresh: "true" forces a synchronous recomputation
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	force := r.URL.Query().Get("refresh") == "true"

	start := timeNow()
	set, err := h.cache.Get(r.Context(), userID, force)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrUpstreamUnavailable):
			respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE",
				"recommendation sources are unavailable and no cached data exists", err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respondError(w, http.StatusGatewayTimeout, "REQUEST_TIMEOUT",
				"recommendation computation timed out", err)
		default:
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"failed to compute recommendations", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: models.StatusSuccess,
		Data:   set,
		Metadata: models.Metadata{
			Timestamp:   timeNow().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      set.ComputedAt.Before(start),
			Stale:       set.Stale,
		},
	})
}

// FeedbackRequest is the POST body for recommendation feedback.
type FeedbackRequest struct {
	EventType string `json:"event_type" validate:"required,oneof=click dismiss action_taken"`
}

// SubmitFeedback handles POST /api/v1/recommendations/{id}/feedback.
// Events are accepted asynchronously; a full queue or a failing store
// never surfaces to the client.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	recID := chi.URLParam(r, "id")

	var req FeedbackRequest
	body := io.LimitReader(r.Body, maxFeedbackBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if !h.cache.Contains(userID, recID) {
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"recommendation not found in the user's current set", nil)
		return
	}

	eventType := feedback.EventType(req.EventType)
	h.recorder.Record(feedback.NewEvent(recID, userID, eventType))

	// Acting on a recommendation changes what should be suggested next,
	// so the cached set is expired for recomputation.
	if eventType == feedback.EventActionTaken {
		if h.cache.Invalidate(userID) {
			logging.Debug().
				Str("user_id", sanitizeLogValue(userID)).
				Str("recommendation_id", sanitizeLogValue(recID)).
				Msg("invalidated recommendation set after action")
		}
	}

	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status: models.StatusSuccess,
		Data: map[string]interface{}{
			"accepted":          true,
			"recommendation_id": recID,
			"event_type":        req.EventType,
		},
		Metadata: models.Metadata{Timestamp: timeNow().UTC()},
	})
}

// Explain handles GET /api/v1/recommendations/{id}/explain. The
// explanation is built from the stored score breakdown, never
// recomputed.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	recID := chi.URLParam(r, "id")

	explanation, err := h.cache.Explain(userID, recID)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrExplanationExpired):
			respondError(w, http.StatusGone, "EXPLANATION_EXPIRED",
				"the recommendation set containing this item has been replaced", nil)
		case errors.Is(err, recommend.ErrNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "recommendation not found", nil)
		default:
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"failed to build explanation", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     explanation,
		Metadata: models.Metadata{Timestamp: timeNow().UTC()},
	})
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: models.StatusSuccess,
		Data: map[string]interface{}{
			"status":               "ok",
			"version":              h.version,
			"cached_users":         h.cache.Len(),
			"feedback_queue_depth": h.recorder.QueueDepth(),
		},
		Metadata: models.Metadata{Timestamp: timeNow().UTC()},
	})
}
