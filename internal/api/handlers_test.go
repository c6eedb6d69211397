// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nextup/nextup/internal/feedback"
	"github.com/nextup/nextup/internal/models"
	"github.com/nextup/nextup/internal/recommend"
)

// mockCache implements RecommendationCache.
type mockCache struct {
	set         *recommend.RecommendationSet
	getErr      error
	explainErr  error
	explanation recommend.Explanation
	contains    bool

	lastForce   bool
	getCalls    int
	invalidated []string
}

func (m *mockCache) Get(_ context.Context, _ string, force bool) (*recommend.RecommendationSet, error) {
	m.getCalls++
	m.lastForce = force
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.set, nil
}

func (m *mockCache) Explain(_, _ string) (recommend.Explanation, error) {
	if m.explainErr != nil {
		return recommend.Explanation{}, m.explainErr
	}
	return m.explanation, nil
}

func (m *mockCache) Contains(_, _ string) bool { return m.contains }

func (m *mockCache) Invalidate(userID string) bool {
	m.invalidated = append(m.invalidated, userID)
	return true
}

func (m *mockCache) Len() int { return 1 }

// mockRecorder implements FeedbackRecorder.
type mockRecorder struct {
	events []feedback.Event
}

func (m *mockRecorder) Record(event feedback.Event) {
	m.events = append(m.events, event)
}

func (m *mockRecorder) QueueDepth() int { return len(m.events) }

func sampleSet() *recommend.RecommendationSet {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &recommend.RecommendationSet{
		UserID: "u1",
		Items: []recommend.Recommendation{
			{
				Item:  recommend.CandidateItem{ID: "sel:c1", Type: recommend.TypeCourseUrgent, Title: "Go Basics"},
				Score: recommend.ScoreBreakdown{Total: 80},
				Tier:  recommend.TierHigh,
			},
		},
		ComputedAt: now,
		ValidUntil: now.Add(2 * time.Hour),
	}
}

func newTestServer(c *mockCache, rec *mockRecorder) *httptest.Server {
	handler := NewHandler(c, rec, "test")
	mw := NewMiddleware(&MiddlewareConfig{RateLimitDisabled: true})
	return httptest.NewServer(NewRouter(handler, mw))
}

func doRequest(t *testing.T, method, url string, userID, body string) (*http.Response, models.APIResponse) {
	t.Helper()

	var reqBody *strings.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	} else {
		reqBody = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, envelope
}

func TestGetRecommendations(t *testing.T) {
	c := &mockCache{set: sampleSet()}
	srv := newTestServer(c, &mockRecorder{})
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/recommendations", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if envelope.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want success", envelope.Status)
	}
	if c.lastForce {
		t.Error("force should be false without refresh param")
	}

	data, _ := json.Marshal(envelope.Data)
	var set recommend.RecommendationSet
	if err := json.Unmarshal(data, &set); err != nil {
		t.Fatalf("decode set: %v", err)
	}
	if set.UserID != "u1" || len(set.Items) != 1 {
		t.Errorf("unexpected set: %+v", set)
	}
}

func TestGetRecommendationsForceRefresh(t *testing.T) {
	c := &mockCache{set: sampleSet()}
	srv := newTestServer(c, &mockRecorder{})
	defer srv.Close()

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/recommendations?refresh=true", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !c.lastForce {
		t.Error("refresh=true should force recomputation")
	}
}

func TestGetRecommendationsRequiresUser(t *testing.T) {
	srv := newTestServer(&mockCache{set: sampleSet()}, &mockRecorder{})
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/recommendations", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
	}
}

func TestGetRecommendationsUpstreamUnavailable(t *testing.T) {
	c := &mockCache{getErr: recommend.ErrUpstreamUnavailable}
	srv := newTestServer(c, &mockRecorder{})
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/recommendations", "u1", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("error = %+v, want UPSTREAM_UNAVAILABLE", envelope.Error)
	}
}

func TestSubmitFeedback(t *testing.T) {
	c := &mockCache{contains: true}
	rec := &mockRecorder{}
	srv := newTestServer(c, rec)
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodPost,
		srv.URL+"/api/v1/recommendations/sel:c1/feedback", "u1", `{"event_type": "click"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if envelope.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want success", envelope.Status)
	}
	if len(rec.events) != 1 {
		t.Fatalf("got %d recorded events, want 1", len(rec.events))
	}
	e := rec.events[0]
	if e.RecommendationID != "sel:c1" || e.UserID != "u1" || e.Type != feedback.EventClick {
		t.Errorf("unexpected event: %+v", e)
	}
	if len(c.invalidated) != 0 {
		t.Error("click must not invalidate the cached set")
	}
}

func TestSubmitFeedbackActionTakenInvalidates(t *testing.T) {
	c := &mockCache{contains: true}
	rec := &mockRecorder{}
	srv := newTestServer(c, rec)
	defer srv.Close()

	resp, _ := doRequest(t, http.MethodPost,
		srv.URL+"/api/v1/recommendations/sel:c1/feedback", "u1", `{"event_type": "action_taken"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(c.invalidated) != 1 || c.invalidated[0] != "u1" {
		t.Errorf("invalidated = %v, want [u1]", c.invalidated)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unsupported event type", `{"event_type": "upvote"}`},
		{"missing event type", `{}`},
		{"malformed body", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockCache{contains: true}
			rec := &mockRecorder{}
			srv := newTestServer(c, rec)
			defer srv.Close()

			resp, envelope := doRequest(t, http.MethodPost,
				srv.URL+"/api/v1/recommendations/sel:c1/feedback", "u1", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
			}
			if len(rec.events) != 0 {
				t.Error("invalid feedback must not be recorded")
			}
		})
	}
}

func TestSubmitFeedbackUnknownRecommendation(t *testing.T) {
	c := &mockCache{contains: false}
	rec := &mockRecorder{}
	srv := newTestServer(c, rec)
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodPost,
		srv.URL+"/api/v1/recommendations/missing/feedback", "u1", `{"event_type": "click"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want NOT_FOUND", envelope.Error)
	}
	if len(rec.events) != 0 {
		t.Error("feedback for unknown recommendations must not be recorded")
	}
}

func TestExplain(t *testing.T) {
	c := &mockCache{
		explanation: recommend.Explanation{
			RecommendationID: "sel:c1",
			Title:            "Go Basics",
			Total:            80,
		},
	}
	srv := newTestServer(c, &mockRecorder{})
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodGet,
		srv.URL+"/api/v1/recommendations/sel:c1/explain", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	data, _ := json.Marshal(envelope.Data)
	var explanation recommend.Explanation
	if err := json.Unmarshal(data, &explanation); err != nil {
		t.Fatalf("decode explanation: %v", err)
	}
	if explanation.RecommendationID != "sel:c1" || explanation.Total != 80 {
		t.Errorf("unexpected explanation: %+v", explanation)
	}
}

func TestExplainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", recommend.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"expired", recommend.ErrExplanationExpired, http.StatusGone, "EXPLANATION_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockCache{explainErr: tt.err}
			srv := newTestServer(c, &mockRecorder{})
			defer srv.Close()

			resp, envelope := doRequest(t, http.MethodGet,
				srv.URL+"/api/v1/recommendations/x/explain", "u1", "")
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if envelope.Error == nil || envelope.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want %s", envelope.Error, tt.wantCode)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&mockCache{}, &mockRecorder{})
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := json.Marshal(envelope.Data)
	var health map[string]interface{}
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("health status = %v, want ok", health["status"])
	}
}

func TestUnknownEndpoint(t *testing.T) {
	srv := newTestServer(&mockCache{}, &mockRecorder{})
	defer srv.Close()

	resp, envelope := doRequest(t, http.MethodGet, srv.URL+"/api/v1/nope", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want NOT_FOUND", envelope.Error)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(&mockCache{}, &mockRecorder{})
	defer srv.Close()

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/health", "", "")
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
