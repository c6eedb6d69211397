// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// maxErrorBodySize limits how much of an error response body is read back
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// Enrollment is a course the user is enrolled in.
type Enrollment struct {
	CourseID  string     `json:"course_id"`
	Title     string     `json:"title"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Mandatory bool       `json:"mandatory"`
	Progress  float64    `json:"progress"` // 0-100 percent complete
	Tags      []string   `json:"tags,omitempty"`
}

// Course is a catalog entry.
type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Completions   int       `json:"completions"`
	Tags          []string  `json:"tags,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
	GrowthSignal  float64   `json:"growth_signal"`
	DurationHours float64   `json:"duration_hours"`
}

// ProjectTask is a claimable task on a current project.
type ProjectTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Bonus       float64    `json:"bonus"`
	EffortHours float64    `json:"effort_hours"`
	Tags        []string   `json:"tags,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Claimed     bool       `json:"claimed"`
}

// GoalStatus is the user's goal check-in state.
type GoalStatus struct {
	UserID      string    `json:"user_id"`
	HasGoal     bool      `json:"has_goal"`
	LastCheckIn time.Time `json:"last_check_in"`
}

// StudyReport is the user's logged study hours over a window.
type StudyReport struct {
	UserID     string  `json:"user_id"`
	WindowDays int     `json:"window_days"`
	Hours      float64 `json:"hours"`
}

// Exam is a published exam.
type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	PublishedAt time.Time  `json:"published_at"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Audience    string     `json:"audience,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// UserProfile is the user's platform profile.
type UserProfile struct {
	UserID    string   `json:"user_id"`
	Skills    []string `json:"skills,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Complete  bool     `json:"complete"`
}

// PlatformAPI is the upstream surface the providers consume. Implemented
// by PlatformClient for production and by mocks in tests; the circuit
// breaker client wraps any implementation.
type PlatformAPI interface {
	// Selections returns the user's course enrollments.
	Selections(ctx context.Context, userID string) ([]Enrollment, error)

	// Courses returns the course catalog.
	Courses(ctx context.Context) ([]Course, error)

	// UnclaimedTasks returns claimable tasks on current projects.
	UnclaimedTasks(ctx context.Context) ([]ProjectTask, error)

	// Goal returns the user's goal check-in status.
	Goal(ctx context.Context, userID string) (*GoalStatus, error)

	// StudyReport returns the user's logged hours over the given window.
	StudyReport(ctx context.Context, userID string, days int) (*StudyReport, error)

	// Exams returns recently published exams.
	Exams(ctx context.Context) ([]Exam, error)

	// Profile returns the user's platform profile.
	Profile(ctx context.Context, userID string) (*UserProfile, error)
}

// ClientConfig holds upstream connection settings.
type ClientConfig struct {
	// BaseURL is the platform API root, without a trailing slash.
	BaseURL string

	// ServiceToken authenticates this service to the platform.
	ServiceToken string

	// Timeout is the HTTP client timeout.
	Timeout time.Duration
}

// PlatformClient talks to the learning-platform REST API.
//
// Thread safety: safe for concurrent use; each request creates its own
// *http.Request.
type PlatformClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewPlatformClient creates a platform API client.
func NewPlatformClient(cfg ClientConfig) *PlatformClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PlatformClient{
		baseURL: cfg.BaseURL,
		token:   cfg.ServiceToken,
		client:  &http.Client{Timeout: timeout},
	}
}

// apiEnvelope is the platform's common response wrapper.
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// makeRequest performs a GET against the platform API, unwraps the
// response envelope, and decodes the data payload into result.
func (c *PlatformClient) makeRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("%s returned platform error %d: %s", path, envelope.Code, envelope.Message)
	}
	if result == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", path, err)
	}
	return nil
}

// readBodyForError reads a bounded amount of the response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Selections returns the user's course enrollments.
func (c *PlatformClient) Selections(ctx context.Context, userID string) ([]Enrollment, error) {
	var out []Enrollment
	err := c.makeRequest(ctx, "/api/v1/users/"+url.PathEscape(userID)+"/selections", nil, &out)
	return out, err
}

// Courses returns the course catalog.
func (c *PlatformClient) Courses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := c.makeRequest(ctx, "/api/v1/courses", nil, &out)
	return out, err
}

// UnclaimedTasks returns claimable tasks on current projects.
func (c *PlatformClient) UnclaimedTasks(ctx context.Context) ([]ProjectTask, error) {
	params := url.Values{}
	params.Set("status", "unclaimed")
	var out []ProjectTask
	err := c.makeRequest(ctx, "/api/v1/projects/tasks", params, &out)
	return out, err
}

// Goal returns the user's goal check-in status.
func (c *PlatformClient) Goal(ctx context.Context, userID string) (*GoalStatus, error) {
	var out GoalStatus
	if err := c.makeRequest(ctx, "/api/v1/users/"+url.PathEscape(userID)+"/goal", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudyReport returns the user's logged hours over the given window.
func (c *PlatformClient) StudyReport(ctx context.Context, userID string, days int) (*StudyReport, error) {
	params := url.Values{}
	params.Set("days", fmt.Sprintf("%d", days))
	var out StudyReport
	if err := c.makeRequest(ctx, "/api/v1/users/"+url.PathEscape(userID)+"/reports", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Exams returns recently published exams.
func (c *PlatformClient) Exams(ctx context.Context) ([]Exam, error) {
	var out []Exam
	err := c.makeRequest(ctx, "/api/v1/exams", nil, &out)
	return out, err
}

// Profile returns the user's platform profile.
func (c *PlatformClient) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	var out UserProfile
	if err := c.makeRequest(ctx, "/api/v1/users/"+url.PathEscape(userID)+"/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
