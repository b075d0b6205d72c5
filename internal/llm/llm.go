// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package llm defines the narrow interface the enrichment orchestrator (C4)
// and vetting agent (C5) use to call a large language model. Neither
// component imports a concrete provider: per the pipeline's out-of-scope
// boundary, wiring an actual model (Gemini, OpenAI, or otherwise) is left
// to the operator's deployment, not this repository.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/pkgerrors"
)

// Client is the pipeline-wide LLM boundary. SchemaCall asks the model to
// produce JSON conforming to schema (a JSON Schema document) and returns
// the raw response for the caller to unmarshal into its own result type;
// TextCall asks for free-form text, used for AI description/summary
// generation where no structured checklist is involved.
type Client interface {
	SchemaCall(ctx context.Context, req SchemaRequest) (json.RawMessage, error)
	TextCall(ctx context.Context, req TextRequest) (string, error)
}

// SchemaRequest is a schema-bound generation request: vetting checklist
// generation and criterion scoring both go through this shape.
type SchemaRequest struct {
	Purpose      string // metrics label: "vetting_checklist", "vetting_score", ...
	SystemPrompt string
	UserPrompt   string
	Schema       json.RawMessage
}

// TextRequest is a free-form generation request (AI descriptions, episode
// summaries).
type TextRequest struct {
	Purpose      string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// RetryPolicy controls the up-to-5-attempt exponential backoff with jitter
// applied around any Client call, per spec.md §4.5's checklist-generation
// retry behavior.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the vetting agent's "up to 5 attempts with
// exponential backoff+jitter on transient errors": MaxAttempts counts
// every call, the first one included.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// CallWithRetry wraps fn with exponential backoff and full jitter, retrying
// only on errors classified pkgerrors.TransientExternal. It is the
// generalization of the teacher's hand-rolled retryWithBackoff
// (internal/sync/helpers.go), adapted here with jitter since LLM providers
// are far more prone to synchronized client retry storms than a
// single-tenant media-server sync loop ever was.
func CallWithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, pkgerrors.TransientExternal) {
			return lastErr
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(policy, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("llm: max retry attempts reached: %w", lastErr)
}

func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	raw := float64(policy.BaseDelay) * math.Pow(2, float64(attempt))
	if raw > float64(policy.MaxDelay) {
		raw = float64(policy.MaxDelay)
	}
	return time.Duration(rand.Float64() * raw)
}
