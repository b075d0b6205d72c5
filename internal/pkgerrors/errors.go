// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package pkgerrors defines the pipeline's error-kind taxonomy: a small set
// of sentinel errors every component wraps its failures in, so callers can
// classify an error with errors.Is without parsing messages.
package pkgerrors

import (
	"errors"
	"fmt"
)

// Kind sentinels. Wrap one of these with fmt.Errorf("...: %w", Kind) (or
// use the New helpers below) so errors.Is(err, pkgerrors.TransientExternal)
// works regardless of how deep the wrapping goes.
var (
	// ConfigError indicates invalid or missing configuration; the process
	// should fail fast rather than retry.
	ConfigError = errors.New("config error")

	// TransientExternal indicates a retryable failure talking to an
	// external system (adapter rate limit, network timeout, 5xx).
	TransientExternal = errors.New("transient external error")

	// PermanentExternal indicates a non-retryable failure from an
	// external system (404, malformed response, auth rejected).
	PermanentExternal = errors.New("permanent external error")

	// LogicError indicates a bug or an invariant violation in pipeline
	// code itself, not an external dependency.
	LogicError = errors.New("logic error")

	// QuotaExceeded indicates a plan-tier quota (weekly match allowance,
	// auto-discovery cap) has been reached.
	QuotaExceeded = errors.New("quota exceeded")

	// DataMissing indicates a required upstream field is absent (e.g. no
	// host names, no AI description) and the operation cannot proceed.
	DataMissing = errors.New("required data missing")
)

// Wrap attaches kind to err via %w so errors.Is(result, kind) succeeds,
// while keeping err's own message and type visible through errors.As.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Newf builds a new error of the given kind with a formatted message.
func Newf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
