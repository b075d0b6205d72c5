package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/patrhick1/pgl-pipeline/internal/pkgerrors"
)

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestCallWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := CallWithRetry(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestCallWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := CallWithRetry(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return pkgerrors.Wrap(pkgerrors.TransientExternal, errors.New("rate limited"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestCallWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := CallWithRetry(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return pkgerrors.Wrap(pkgerrors.TransientExternal, errors.New("still rate limited"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestCallWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	sentinel := pkgerrors.Wrap(pkgerrors.PermanentExternal, errors.New("bad request"))
	err := CallWithRetry(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, pkgerrors.PermanentExternal) {
		t.Fatalf("expected permanent error to propagate unwrapped, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestCallWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := CallWithRetry(ctx, fastPolicy(5), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return pkgerrors.Wrap(pkgerrors.TransientExternal, errors.New("rate limited"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
