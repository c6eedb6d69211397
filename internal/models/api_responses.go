// NextUp - Next-Action Recommendation Service
// Copyright 2026 NextUp Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextup/nextup

// Package models defines the shared API response envelope.
package models

import "time"

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the common envelope for all API endpoints. Every
// response carries a status, an optional data payload, and metadata for
// observability.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
//
// Cached reports whether the payload was served from the recommendation
// cache; Stale additionally marks a cached payload that has passed its
// validity window and is being refreshed in the background.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Stale       bool      `json:"stale,omitempty"`
}

// APIError is a structured error payload.
//
// Error codes used by this service:
//   - VALIDATION_ERROR: invalid input parameters
//   - NOT_FOUND: resource doesn't exist
//   - EXPLANATION_EXPIRED: the recommendation set was replaced
//   - UPSTREAM_UNAVAILABLE: all candidate sources failed with no cached set
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: unexpected server failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewSuccessResponse builds a success envelope around the given payload.
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Status: StatusSuccess,
		Data:   data,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
		},
	}
}

// NewErrorResponse builds an error envelope with the given code and
// message.
func NewErrorResponse(code, message string) APIResponse {
	return APIResponse{
		Status: StatusError,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}
}
