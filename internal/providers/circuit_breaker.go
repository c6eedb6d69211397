// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nextup/nextup/internal/logging"
	"github.com/nextup/nextup/internal/metrics"
)

// CircuitBreakerClient wraps a PlatformAPI with the circuit breaker
// pattern so a failing or slow upstream is cut off instead of dragging
// every aggregation to its timeout.
//
// The breaker uses real time for its interval and timeout windows; tests
// exercise the wrapped API directly and cover the breaker with its own
// focused tests.
type CircuitBreakerClient struct {
	api  PlatformAPI
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewCircuitBreakerClient wraps the given API with a circuit breaker.
//
// Breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window while closed
//   - 30 second open period before probing recovery
//   - Opens at a 60% failure rate with at least 10 requests observed
func NewCircuitBreakerClient(api PlatformAPI) *CircuitBreakerClient {
	const cbName = "platform-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening platform API circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{api: api, cb: cb, name: cbName}
}

// execute wraps an upstream call with circuit breaker protection.
func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return result, nil
}

// castResult type-asserts the breaker's untyped result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Selections returns the user's enrollments with breaker protection.
func (c *CircuitBreakerClient) Selections(ctx context.Context, userID string) ([]Enrollment, error) {
	return castResult[[]Enrollment](c.execute(func() (interface{}, error) {
		return c.api.Selections(ctx, userID)
	}))
}

// Courses returns the catalog with breaker protection.
func (c *CircuitBreakerClient) Courses(ctx context.Context) ([]Course, error) {
	return castResult[[]Course](c.execute(func() (interface{}, error) {
		return c.api.Courses(ctx)
	}))
}

// UnclaimedTasks returns claimable tasks with breaker protection.
func (c *CircuitBreakerClient) UnclaimedTasks(ctx context.Context) ([]ProjectTask, error) {
	return castResult[[]ProjectTask](c.execute(func() (interface{}, error) {
		return c.api.UnclaimedTasks(ctx)
	}))
}

// Goal returns the user's goal status with breaker protection.
func (c *CircuitBreakerClient) Goal(ctx context.Context, userID string) (*GoalStatus, error) {
	return castResult[*GoalStatus](c.execute(func() (interface{}, error) {
		return c.api.Goal(ctx, userID)
	}))
}

// StudyReport returns the user's study hours with breaker protection.
func (c *CircuitBreakerClient) StudyReport(ctx context.Context, userID string, days int) (*StudyReport, error) {
	return castResult[*StudyReport](c.execute(func() (interface{}, error) {
		return c.api.StudyReport(ctx, userID, days)
	}))
}

// Exams returns recently published exams with breaker protection.
func (c *CircuitBreakerClient) Exams(ctx context.Context) ([]Exam, error) {
	return castResult[[]Exam](c.execute(func() (interface{}, error) {
		return c.api.Exams(ctx)
	}))
}

// Profile returns the user's profile with breaker protection.
func (c *CircuitBreakerClient) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	return castResult[*UserProfile](c.execute(func() (interface{}, error) {
		return c.api.Profile(ctx, userID)
	}))
}
