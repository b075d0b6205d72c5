// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package api exposes the pipeline's HTTP surface: campaign discovery
// triggers and status, the review-task queue, scheduler control, a
// websocket notification feed, and liveness/readiness probes.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/patrhick1/pgl-pipeline/internal/middleware"
)

// decodeJSON reads and decodes a request body into v, capped at 1MiB to
// bound how much an unauthenticated or misbehaving client can make the
// server buffer.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// envelope is the standardized response wrapper every endpoint writes,
// generalized from the teacher's response.go APIResponse shape down to
// the fields this API actually uses.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *apiError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeBadRequest   = "BAD_REQUEST"
	errCodeUnauthorized = "UNAUTHORIZED"
	errCodeNotFound     = "NOT_FOUND"
	errCodeConflict     = "CONFLICT"
	errCodeInternal     = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	env.RequestID = middleware.GetRequestID(r.Context())
	env.Timestamp = time.Now()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, r, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, envelope{Success: false, Error: &apiError{Code: code, Message: message}})
}
