package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitAndLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("should not appear")
	Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info message leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("expected warn message in output, got: %q", out)
	}
}

func TestNewTestLoggerCapturesOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewTestLogger(&buf)
	l.Info().Str("component", "vetting").Msg("checklist generated")

	out := buf.String()
	if !strings.Contains(out, "checklist generated") {
		t.Fatalf("expected message in output: %q", out)
	}
	if !strings.Contains(out, "vetting") {
		t.Fatalf("expected field in output: %q", out)
	}
}

func TestCtxRoundTripsAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).With().Str("correlation_id", "abc-123").Logger()
	ctx := WithContext(context.Background(), l)

	Ctx(ctx).Info().Msg("enrichment started")

	if !strings.Contains(buf.String(), "abc-123") {
		t.Fatalf("expected correlation id in output, got: %q", buf.String())
	}
}
