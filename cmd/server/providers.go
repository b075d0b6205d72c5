// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/patrhick1/pgl-pipeline/internal/llm"
	"github.com/patrhick1/pgl-pipeline/internal/transcribe"
)

// unconfiguredLLM satisfies llm.Client when no provider key is present in
// configuration. internal/llm is an interface-only boundary by design
// (see DESIGN.md) - wiring a concrete model provider is the operator's
// responsibility. Returning a clear error here lets the process start
// and serve everything that doesn't require a model call (the API,
// review-task resolution, the scheduler's non-LLM tasks); enrichment
// and vetting simply fail per-item against this stub until a real
// provider is configured, which ProcessBatch already tolerates.
type unconfiguredLLM struct{}

func (unconfiguredLLM) SchemaCall(context.Context, llm.SchemaRequest) (json.RawMessage, error) {
	return nil, fmt.Errorf("llm: no provider configured (set llm.api_keys)")
}

func (unconfiguredLLM) TextCall(context.Context, llm.TextRequest) (string, error) {
	return "", fmt.Errorf("llm: no provider configured (set llm.api_keys)")
}

// unconfiguredTranscriber mirrors unconfiguredLLM for the transcription
// boundary (internal/transcribe.Transcriber).
type unconfiguredTranscriber struct{}

func (unconfiguredTranscriber) Transcribe(context.Context, transcribe.Request) (transcribe.Result, error) {
	return transcribe.Result{}, fmt.Errorf("transcribe: no provider configured")
}
