// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package services

import (
	"context"
)

// FeedbackWorker is the recorder surface the service supervises.
type FeedbackWorker interface {
	// Run drains the feedback queue until the context is cancelled.
	Run(ctx context.Context) error
}

// FeedbackService runs the feedback recorder's persistence worker under
// supervision.
type FeedbackService struct {
	recorder FeedbackWorker
	name     string
}

// NewFeedbackService creates the feedback persistence service.
func NewFeedbackService(recorder FeedbackWorker) *FeedbackService {
	return &FeedbackService{
		recorder: recorder,
		name:     "feedback-recorder",
	}
}

// Serve implements suture.Service.
func (s *FeedbackService) Serve(ctx context.Context) error {
	return s.recorder.Run(ctx)
}

// String implements fmt.Stringer for suture's event log.
func (s *FeedbackService) String() string {
	return s.name
}
