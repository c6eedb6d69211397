// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *PlatformClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPlatformClient(ClientConfig{
		BaseURL:      srv.URL,
		ServiceToken: "test-token",
	})
}

func TestPlatformClientSelections(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/u1/selections" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 0,
			"data": [
				{"course_id": "c1", "title": "Go Basics", "mandatory": true, "progress": 40, "tags": ["go"]}
			]
		}`))
	})

	enrollments, err := c.Selections(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Selections: %v", err)
	}
	if len(enrollments) != 1 {
		t.Fatalf("got %d enrollments, want 1", len(enrollments))
	}
	e := enrollments[0]
	if e.CourseID != "c1" || e.Title != "Go Basics" || !e.Mandatory || e.Progress != 40 {
		t.Errorf("unexpected enrollment: %+v", e)
	}
}

func TestPlatformClientQueryParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/projects/tasks":
			if got := r.URL.Query().Get("status"); got != "unclaimed" {
				t.Errorf("status = %q, want unclaimed", got)
			}
			_, _ = w.Write([]byte(`{"code": 0, "data": []}`))
		case "/api/v1/users/u1/reports":
			if got := r.URL.Query().Get("days"); got != "30" {
				t.Errorf("days = %q, want 30", got)
			}
			_, _ = w.Write([]byte(`{"code": 0, "data": {"user_id": "u1", "window_days": 30, "hours": 4.5}}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	if _, err := c.UnclaimedTasks(context.Background()); err != nil {
		t.Fatalf("UnclaimedTasks: %v", err)
	}
	report, err := c.StudyReport(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("StudyReport: %v", err)
	}
	if report.Hours != 4.5 {
		t.Errorf("Hours = %v, want 4.5", report.Hours)
	}
}

func TestPlatformClientHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := c.Courses(context.Background())
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error %q should mention status code", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error %q should include response body", err)
	}
}

func TestPlatformClientEnvelopeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": 40100, "message": "token expired"}`))
	})

	_, err := c.Exams(context.Background())
	if err == nil {
		t.Fatal("expected error for platform error envelope")
	}
	if !strings.Contains(err.Error(), "40100") || !strings.Contains(err.Error(), "token expired") {
		t.Errorf("error %q should carry platform code and message", err)
	}
}

func TestPlatformClientContextCancellation(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{"code": 0, "data": []}`))
	})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Courses(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
