// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nextup/nextup/internal/recommend"
)

// mockAPI implements PlatformAPI with per-method function hooks.
type mockAPI struct {
	selections func(ctx context.Context, userID string) ([]Enrollment, error)
	courses    func(ctx context.Context) ([]Course, error)
	tasks      func(ctx context.Context) ([]ProjectTask, error)
	goal       func(ctx context.Context, userID string) (*GoalStatus, error)
	report     func(ctx context.Context, userID string, days int) (*StudyReport, error)
	exams      func(ctx context.Context) ([]Exam, error)
	profile    func(ctx context.Context, userID string) (*UserProfile, error)
}

func (m *mockAPI) Selections(ctx context.Context, userID string) ([]Enrollment, error) {
	if m.selections == nil {
		return nil, nil
	}
	return m.selections(ctx, userID)
}

func (m *mockAPI) Courses(ctx context.Context) ([]Course, error) {
	if m.courses == nil {
		return nil, nil
	}
	return m.courses(ctx)
}

func (m *mockAPI) UnclaimedTasks(ctx context.Context) ([]ProjectTask, error) {
	if m.tasks == nil {
		return nil, nil
	}
	return m.tasks(ctx)
}

func (m *mockAPI) Goal(ctx context.Context, userID string) (*GoalStatus, error) {
	if m.goal == nil {
		return nil, nil
	}
	return m.goal(ctx, userID)
}

func (m *mockAPI) StudyReport(ctx context.Context, userID string, days int) (*StudyReport, error) {
	if m.report == nil {
		return nil, nil
	}
	return m.report(ctx, userID, days)
}

func (m *mockAPI) Exams(ctx context.Context) ([]Exam, error) {
	if m.exams == nil {
		return nil, nil
	}
	return m.exams(ctx)
}

func (m *mockAPI) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	if m.profile == nil {
		return nil, nil
	}
	return m.profile(ctx, userID)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func TestSelectionsProviderSkipsFinishedCourses(t *testing.T) {
	deadline := testNow.Add(48 * time.Hour)
	api := &mockAPI{
		selections: func(_ context.Context, userID string) ([]Enrollment, error) {
			if userID != "u1" {
				t.Errorf("userID = %q, want u1", userID)
			}
			return []Enrollment{
				{CourseID: "c1", Title: "Go Basics", Progress: 40, Mandatory: true, Deadline: &deadline, Tags: []string{"go"}},
				{CourseID: "c2", Title: "Done Course", Progress: 100},
			}, nil
		},
	}

	items, err := NewSelectionsProvider(api).Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	got := items[0]
	if got.ID != "sel:c1" {
		t.Errorf("ID = %q, want sel:c1", got.ID)
	}
	if got.Type != recommend.TypeCourseUrgent {
		t.Errorf("Type = %q, want %q", got.Type, recommend.TypeCourseUrgent)
	}
	if !got.Attributes.Mandatory {
		t.Error("expected mandatory attribute to carry over")
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v, want %v", got.Deadline, deadline)
	}
}

func TestCatalogProviderSplitsNewAndPopular(t *testing.T) {
	api := &mockAPI{
		courses: func(_ context.Context) ([]Course, error) {
			return []Course{
				{ID: "c1", Title: "Brand New", PublishedAt: testNow.AddDate(0, 0, -3), Completions: 50},
				{ID: "c2", Title: "Old Favorite", PublishedAt: testNow.AddDate(0, -6, 0), Completions: 12},
				{ID: "c3", Title: "Old Obscure", PublishedAt: testNow.AddDate(0, -6, 0), Completions: 2},
			}, nil
		},
	}
	p := NewCatalogProvider(api, DefaultConfig())
	p.now = fixedNow

	items, err := p.Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "new-course:c1" || items[0].Type != recommend.TypeCoursePublish {
		t.Errorf("items[0] = %q/%q, want new-course:c1/%q", items[0].ID, items[0].Type, recommend.TypeCoursePublish)
	}
	if items[1].ID != "course:c2" || items[1].Type != recommend.TypeCoursePopular {
		t.Errorf("items[1] = %q/%q, want course:c2/%q", items[1].ID, items[1].Type, recommend.TypeCoursePopular)
	}
	if items[1].Attributes.Popularity != 12 {
		t.Errorf("Popularity = %d, want 12", items[1].Attributes.Popularity)
	}
}

func TestTasksProviderSkipsClaimed(t *testing.T) {
	api := &mockAPI{
		tasks: func(_ context.Context) ([]ProjectTask, error) {
			return []ProjectTask{
				{ID: "t1", Title: "Fix flaky test", Bonus: 30, EffortHours: 4},
				{ID: "t2", Title: "Taken", Claimed: true},
			}, nil
		},
	}

	items, err := NewTasksProvider(api).Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ID != "task:t1" || items[0].Type != recommend.TypeTaskClaim {
		t.Errorf("got %q/%q, want task:t1/%q", items[0].ID, items[0].Type, recommend.TypeTaskClaim)
	}
	if items[0].Attributes.Bonus != 30 {
		t.Errorf("Bonus = %v, want 30", items[0].Attributes.Bonus)
	}
}

func TestGoalProvider(t *testing.T) {
	tests := []struct {
		name string
		goal *GoalStatus
		want int
	}{
		{"no goal", &GoalStatus{UserID: "u1", HasGoal: false}, 0},
		{"nil status", nil, 0},
		{"recent check-in", &GoalStatus{UserID: "u1", HasGoal: true, LastCheckIn: testNow.AddDate(0, 0, -5)}, 0},
		{"overdue check-in", &GoalStatus{UserID: "u1", HasGoal: true, LastCheckIn: testNow.AddDate(0, 0, -30)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{
				goal: func(_ context.Context, _ string) (*GoalStatus, error) {
					return tt.goal, nil
				},
			}
			p := NewGoalProvider(api, DefaultConfig())
			p.now = fixedNow

			items, err := p.Fetch(context.Background(), "u1")
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(items) != tt.want {
				t.Fatalf("got %d items, want %d", len(items), tt.want)
			}
			if tt.want == 1 && items[0].Type != recommend.TypeGoalTalk {
				t.Errorf("Type = %q, want %q", items[0].Type, recommend.TypeGoalTalk)
			}
		})
	}
}

func TestReportsProvider(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		want  int
	}{
		{"under threshold", 3.5, 1},
		{"at threshold", 10, 0},
		{"over threshold", 25, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{
				report: func(_ context.Context, userID string, days int) (*StudyReport, error) {
					if days != 30 {
						t.Errorf("days = %d, want 30", days)
					}
					return &StudyReport{UserID: userID, WindowDays: days, Hours: tt.hours}, nil
				},
			}

			items, err := NewReportsProvider(api, DefaultConfig()).Fetch(context.Background(), "u1")
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(items) != tt.want {
				t.Fatalf("got %d items, want %d", len(items), tt.want)
			}
			if tt.want == 1 && items[0].Type != recommend.TypeReportTime {
				t.Errorf("Type = %q, want %q", items[0].Type, recommend.TypeReportTime)
			}
		})
	}
}

func TestExamsProviderFiltersOldExams(t *testing.T) {
	api := &mockAPI{
		exams: func(_ context.Context) ([]Exam, error) {
			return []Exam{
				{ID: "e1", Title: "New Exam", PublishedAt: testNow.AddDate(0, 0, -2), Audience: "all"},
				{ID: "e2", Title: "Stale Exam", PublishedAt: testNow.AddDate(0, 0, -60)},
			}, nil
		},
	}
	p := NewExamsProvider(api, DefaultConfig())
	p.now = fixedNow

	items, err := p.Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ID != "exam:e1" || items[0].Type != recommend.TypeExamPublish {
		t.Errorf("got %q/%q, want exam:e1/%q", items[0].ID, items[0].Type, recommend.TypeExamPublish)
	}
	if items[0].Attributes.Audience != "all" {
		t.Errorf("Audience = %q, want all", items[0].Attributes.Audience)
	}
}

func TestProfileNudgeProvider(t *testing.T) {
	tests := []struct {
		name    string
		profile *UserProfile
		want    int
	}{
		{"incomplete", &UserProfile{UserID: "u1", Complete: false}, 1},
		{"complete", &UserProfile{UserID: "u1", Complete: true}, 0},
		{"nil profile", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{
				profile: func(_ context.Context, _ string) (*UserProfile, error) {
					return tt.profile, nil
				},
			}

			items, err := NewProfileNudgeProvider(api).Fetch(context.Background(), "u1")
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(items) != tt.want {
				t.Fatalf("got %d items, want %d", len(items), tt.want)
			}
			if tt.want == 1 && items[0].ID != "profile:u1" {
				t.Errorf("ID = %q, want profile:u1", items[0].ID)
			}
		})
	}
}

func TestProvidersPropagateUpstreamErrors(t *testing.T) {
	upstreamErr := errors.New("upstream down")
	api := &mockAPI{
		selections: func(_ context.Context, _ string) ([]Enrollment, error) { return nil, upstreamErr },
		courses:    func(_ context.Context) ([]Course, error) { return nil, upstreamErr },
		tasks:      func(_ context.Context) ([]ProjectTask, error) { return nil, upstreamErr },
		goal:       func(_ context.Context, _ string) (*GoalStatus, error) { return nil, upstreamErr },
		report:     func(_ context.Context, _ string, _ int) (*StudyReport, error) { return nil, upstreamErr },
		exams:      func(_ context.Context) ([]Exam, error) { return nil, upstreamErr },
		profile:    func(_ context.Context, _ string) (*UserProfile, error) { return nil, upstreamErr },
	}

	for _, p := range NewAll(api, DefaultConfig()) {
		if _, err := p.Fetch(context.Background(), "u1"); !errors.Is(err, upstreamErr) {
			t.Errorf("%s: err = %v, want upstream error", p.Name(), err)
		}
	}
}

func TestNewAllRegistrationOrder(t *testing.T) {
	want := []string{
		"course_selections",
		"course_catalog",
		"project_tasks",
		"goal_checkin",
		"study_reports",
		"exams",
		"profile_completion",
	}

	ps := NewAll(&mockAPI{}, DefaultConfig())
	if len(ps) != len(want) {
		t.Fatalf("got %d providers, want %d", len(ps), len(want))
	}
	for i, p := range ps {
		if p.Name() != want[i] {
			t.Errorf("provider %d = %q, want %q", i, p.Name(), want[i])
		}
	}
}

func TestProfileSource(t *testing.T) {
	api := &mockAPI{
		profile: func(_ context.Context, userID string) (*UserProfile, error) {
			return &UserProfile{UserID: userID, Skills: []string{"go"}, Interests: []string{"testing"}}, nil
		},
	}

	profile, err := NewProfileSource(api).Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", profile.UserID)
	}
	if len(profile.Skills) != 1 || profile.Skills[0] != "go" {
		t.Errorf("Skills = %v, want [go]", profile.Skills)
	}
	if len(profile.Interests) != 1 || profile.Interests[0] != "testing" {
		t.Errorf("Interests = %v, want [testing]", profile.Interests)
	}
}
