// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/nextup/nextup/internal/recommend"
)

// Config holds the thresholds the provider adapters apply when turning
// upstream data into candidates.
type Config struct {
	// PopularMinCompletions is the peer-completion floor for surfacing a
	// catalog course as popular.
	PopularMinCompletions int

	// RecentPublishDays is how recently a course or exam must have been
	// published to be surfaced as new.
	RecentPublishDays int

	// GoalCheckInDays is how long a goal may go without a check-in
	// before a talk is suggested.
	GoalCheckInDays int

	// ReportWindowDays is the study-hours reporting window.
	ReportWindowDays int

	// ReportMinHours is the study-hours floor under which a nudge is
	// surfaced.
	ReportMinHours float64
}

// DefaultConfig returns the standard provider thresholds.
func DefaultConfig() Config {
	return Config{
		PopularMinCompletions: 5,
		RecentPublishDays:     14,
		GoalCheckInDays:       21,
		ReportWindowDays:      30,
		ReportMinHours:        10,
	}
}

// Growth signals assigned to candidates whose upstream data carries none.
const (
	taskGrowthSignal    = 0.4
	goalGrowthSignal    = 0.7
	reportGrowthSignal  = 0.3
	profileGrowthSignal = 0.2
)

// NewAll returns the full provider set in registration order. The order
// is part of the engine's determinism contract and must stay stable.
func NewAll(api PlatformAPI, cfg Config) []recommend.Provider {
	return []recommend.Provider{
		NewSelectionsProvider(api),
		NewCatalogProvider(api, cfg),
		NewTasksProvider(api),
		NewGoalProvider(api, cfg),
		NewReportsProvider(api, cfg),
		NewExamsProvider(api, cfg),
		NewProfileNudgeProvider(api),
	}
}

// SelectionsProvider surfaces the user's unfinished course enrollments.
type SelectionsProvider struct {
	api PlatformAPI
}

// NewSelectionsProvider creates the enrollments provider.
func NewSelectionsProvider(api PlatformAPI) *SelectionsProvider {
	return &SelectionsProvider{api: api}
}

// Name implements recommend.Provider.
func (p *SelectionsProvider) Name() string { return "course_selections" }

// Fetch implements recommend.Provider.
func (p *SelectionsProvider) Fetch(ctx context.Context, userID string) ([]recommend.CandidateItem, error) {
	enrollments, err := p.api.Selections(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]recommend.CandidateItem, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Progress >= 100 {
			continue
		}
		items = append(items, recommend.CandidateItem{
			ID:           "sel:" + e.CourseID,
			Type:         recommend.TypeCourseUrgent,
			Title:        e.Title,
			Description:  fmt.Sprintf("You are %.0f%% through this course.", e.Progress),
			ActionLabel:  "Continue course",
			ActionTarget: "/courses/" + e.CourseID,
			Deadline:     e.Deadline,
			Attributes: recommend.Attributes{
				Mandatory: e.Mandatory,
				Tags:      e.Tags,
			},
		})
	}
	return items, nil
}

// CatalogProvider surfaces new and popular catalog courses.
type CatalogProvider struct {
	api PlatformAPI
	cfg Config

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewCatalogProvider creates the catalog provider.
func NewCatalogProvider(api PlatformAPI, cfg Config) *CatalogProvider {
	return &CatalogProvider{api: api, cfg: cfg, now: time.Now}
}

// Name implements recommend.Provider.
func (p *CatalogProvider) Name() string { return "course_catalog" }

// Fetch implements recommend.Provider. A recently published course is
// surfaced as new; otherwise it must clear the popularity floor.
func (p *CatalogProvider) Fetch(ctx context.Context, _ string) ([]recommend.CandidateItem, error) {
	courses, err := p.api.Courses(ctx)
	if err != nil {
		return nil, err
	}

	recentCutoff := p.now().AddDate(0, 0, -p.cfg.RecentPublishDays)
	items := make([]recommend.CandidateItem, 0, len(courses))
	for _, c := range courses {
		attrs := recommend.Attributes{
			Popularity:   c.Completions,
			Tags:         c.Tags,
			GrowthSignal: c.GrowthSignal,
			EffortHours:  c.DurationHours,
		}
		switch {
		case c.PublishedAt.After(recentCutoff):
			items = append(items, recommend.CandidateItem{
				ID:           "new-course:" + c.ID,
				Type:         recommend.TypeCoursePublish,
				Title:        c.Title,
				Description:  "Newly published course.",
				ActionLabel:  "View course",
				ActionTarget: "/courses/" + c.ID,
				Attributes:   attrs,
			})
		case c.Completions >= p.cfg.PopularMinCompletions:
			items = append(items, recommend.CandidateItem{
				ID:           "course:" + c.ID,
				Type:         recommend.TypeCoursePopular,
				Title:        c.Title,
				Description:  fmt.Sprintf("Completed by %d of your peers.", c.Completions),
				ActionLabel:  "Start course",
				ActionTarget: "/courses/" + c.ID,
				Attributes:   attrs,
			})
		}
	}
	return items, nil
}

// TasksProvider surfaces unclaimed project tasks.
type TasksProvider struct {
	api PlatformAPI
}

// NewTasksProvider creates the project tasks provider.
func NewTasksProvider(api PlatformAPI) *TasksProvider {
	return &TasksProvider{api: api}
}

// Name implements recommend.Provider.
func (p *TasksProvider) Name() string { return "project_tasks" }

// Fetch implements recommend.Provider.
func (p *TasksProvider) Fetch(ctx context.Context, _ string) ([]recommend.CandidateItem, error) {
	tasks, err := p.api.UnclaimedTasks(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]recommend.CandidateItem, 0, len(tasks))
	for _, t := range tasks {
		if t.Claimed {
			continue
		}
		items = append(items, recommend.CandidateItem{
			ID:           "task:" + t.ID,
			Type:         recommend.TypeTaskClaim,
			Title:        t.Title,
			Description:  fmt.Sprintf("Unclaimed task worth %.0f bonus points.", t.Bonus),
			ActionLabel:  "Claim task",
			ActionTarget: "/projects/tasks/" + t.ID,
			Deadline:     t.Deadline,
			Attributes: recommend.Attributes{
				Bonus:        t.Bonus,
				EffortHours:  t.EffortHours,
				Tags:         t.Tags,
				GrowthSignal: taskGrowthSignal,
			},
		})
	}
	return items, nil
}

// GoalProvider surfaces an overdue goal check-in.
type GoalProvider struct {
	api PlatformAPI
	cfg Config
	now func() time.Time
}

// NewGoalProvider creates the goal check-in provider.
func NewGoalProvider(api PlatformAPI, cfg Config) *GoalProvider {
	return &GoalProvider{api: api, cfg: cfg, now: time.Now}
}

// Name implements recommend.Provider.
func (p *GoalProvider) Name() string { return "goal_checkin" }

// Fetch implements recommend.Provider.
func (p *GoalProvider) Fetch(ctx context.Context, userID string) ([]recommend.CandidateItem, error) {
	goal, err := p.api.Goal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if goal == nil || !goal.HasGoal {
		return nil, nil
	}

	overdueCutoff := p.now().AddDate(0, 0, -p.cfg.GoalCheckInDays)
	if goal.LastCheckIn.After(overdueCutoff) {
		return nil, nil
	}

	days := int(p.now().Sub(goal.LastCheckIn).Hours() / 24)
	return []recommend.CandidateItem{{
		ID:           "goal:" + userID,
		Type:         recommend.TypeGoalTalk,
		Title:        "Check in on your goal",
		Description:  fmt.Sprintf("No goal check-in for %d days.", days),
		ActionLabel:  "Schedule a talk",
		ActionTarget: "/goals/checkin",
		Attributes: recommend.Attributes{
			GrowthSignal: goalGrowthSignal,
		},
	}}, nil
}

// ReportsProvider surfaces a study-hours shortfall.
type ReportsProvider struct {
	api PlatformAPI
	cfg Config
}

// NewReportsProvider creates the study-hours provider.
func NewReportsProvider(api PlatformAPI, cfg Config) *ReportsProvider {
	return &ReportsProvider{api: api, cfg: cfg}
}

// Name implements recommend.Provider.
func (p *ReportsProvider) Name() string { return "study_reports" }

// Fetch implements recommend.Provider.
func (p *ReportsProvider) Fetch(ctx context.Context, userID string) ([]recommend.CandidateItem, error) {
	report, err := p.api.StudyReport(ctx, userID, p.cfg.ReportWindowDays)
	if err != nil {
		return nil, err
	}
	if report == nil || report.Hours >= p.cfg.ReportMinHours {
		return nil, nil
	}

	return []recommend.CandidateItem{{
		ID:           "report:" + userID,
		Type:         recommend.TypeReportTime,
		Title:        "Log more study time",
		Description:  fmt.Sprintf("Only %.1f hours logged in the last %d days.", report.Hours, p.cfg.ReportWindowDays),
		ActionLabel:  "Log study hours",
		ActionTarget: "/reports/study",
		Attributes: recommend.Attributes{
			GrowthSignal: reportGrowthSignal,
		},
	}}, nil
}

// ExamsProvider surfaces recently published exams.
type ExamsProvider struct {
	api PlatformAPI
	cfg Config
	now func() time.Time
}

// NewExamsProvider creates the exams provider.
func NewExamsProvider(api PlatformAPI, cfg Config) *ExamsProvider {
	return &ExamsProvider{api: api, cfg: cfg, now: time.Now}
}

// Name implements recommend.Provider.
func (p *ExamsProvider) Name() string { return "exams" }

// Fetch implements recommend.Provider.
func (p *ExamsProvider) Fetch(ctx context.Context, _ string) ([]recommend.CandidateItem, error) {
	exams, err := p.api.Exams(ctx)
	if err != nil {
		return nil, err
	}

	recentCutoff := p.now().AddDate(0, 0, -p.cfg.RecentPublishDays)
	items := make([]recommend.CandidateItem, 0, len(exams))
	for _, e := range exams {
		if !e.PublishedAt.After(recentCutoff) {
			continue
		}
		items = append(items, recommend.CandidateItem{
			ID:           "exam:" + e.ID,
			Type:         recommend.TypeExamPublish,
			Title:        e.Title,
			Description:  "Newly published exam.",
			ActionLabel:  "Take exam",
			ActionTarget: "/exams/" + e.ID,
			Deadline:     e.Deadline,
			Attributes: recommend.Attributes{
				Audience: e.Audience,
				Tags:     e.Tags,
			},
		})
	}
	return items, nil
}

// ProfileNudgeProvider surfaces an incomplete-profile nudge.
type ProfileNudgeProvider struct {
	api PlatformAPI
}

// NewProfileNudgeProvider creates the profile-completion provider.
func NewProfileNudgeProvider(api PlatformAPI) *ProfileNudgeProvider {
	return &ProfileNudgeProvider{api: api}
}

// Name implements recommend.Provider.
func (p *ProfileNudgeProvider) Name() string { return "profile_completion" }

// Fetch implements recommend.Provider.
func (p *ProfileNudgeProvider) Fetch(ctx context.Context, userID string) ([]recommend.CandidateItem, error) {
	profile, err := p.api.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Complete {
		return nil, nil
	}

	return []recommend.CandidateItem{{
		ID:           "profile:" + userID,
		Type:         recommend.TypeProfileComplete,
		Title:        "Complete your profile",
		Description:  "A complete profile improves how well actions are matched to you.",
		ActionLabel:  "Edit profile",
		ActionTarget: "/profile/edit",
		Attributes: recommend.Attributes{
			Audience:     "all",
			GrowthSignal: profileGrowthSignal,
		},
	}}, nil
}

// ProfileSource adapts the platform profile endpoint to the engine's
// personal-fit input.
type ProfileSource struct {
	api PlatformAPI
}

// NewProfileSource creates the profile source.
func NewProfileSource(api PlatformAPI) *ProfileSource {
	return &ProfileSource{api: api}
}

// Profile implements recommend.ProfileSource.
func (s *ProfileSource) Profile(ctx context.Context, userID string) (recommend.Profile, error) {
	p, err := s.api.Profile(ctx, userID)
	if err != nil {
		return recommend.Profile{}, err
	}
	if p == nil {
		return recommend.Profile{UserID: userID}, nil
	}
	return recommend.Profile{
		UserID:    userID,
		Skills:    p.Skills,
		Interests: p.Interests,
	}, nil
}
