package adapters

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
	"github.com/patrhick1/pgl-pipeline/internal/metrics"
)

// GuardedAdapter wraps an Adapter with a circuit breaker (so a struggling
// directory API stops being hammered) and a rate limiter (so a healthy one
// stays under its published quota). Every Adapter call site should go
// through a GuardedAdapter rather than the bare client.
type GuardedAdapter struct {
	inner   Adapter
	cb      *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
}

// NewGuardedAdapter builds the wrapper. interRequestDelay sets the steady
// rate; one token is required per call and the limiter starts full so the
// first call never waits.
//
// Circuit breaker configuration mirrors the teacher's Tautulli client:
// opens once at least 10 requests have been seen and 60% of them failed,
// half-opens after a cooldown, allows 3 probe requests in half-open state.
func NewGuardedAdapter(inner Adapter, interRequestDelay time.Duration) *GuardedAdapter {
	name := inner.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			logging.Info().Str("adapter", n).Str("from", from.String()).Str("to", to.String()).
				Msg("adapter circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(n).Set(stateToFloat(to))
		},
	})

	limit := rate.Every(interRequestDelay)
	if interRequestDelay <= 0 {
		limit = rate.Inf
	}

	return &GuardedAdapter{inner: inner, cb: cb, limiter: rate.NewLimiter(limit, 1)}
}

func (g *GuardedAdapter) Name() string { return g.inner.Name() }

func (g *GuardedAdapter) Search(ctx context.Context, keyword string, page, pageSize int) ([]SearchResult, error) {
	return guardedCall[[]SearchResult](ctx, g, func() (any, error) {
		return g.inner.Search(ctx, keyword, page, pageSize)
	})
}

func (g *GuardedAdapter) Taxonomies(ctx context.Context) ([]string, error) {
	return guardedCall[[]string](ctx, g, func() (any, error) {
		return g.inner.Taxonomies(ctx)
	})
}

func (g *GuardedAdapter) LookupByRSS(ctx context.Context, rssURL string) (*SearchResult, error) {
	return guardedCall[*SearchResult](ctx, g, func() (any, error) {
		return g.inner.LookupByRSS(ctx, rssURL)
	})
}

func (g *GuardedAdapter) LookupByItunesID(ctx context.Context, itunesID string) (*SearchResult, error) {
	return guardedCall[*SearchResult](ctx, g, func() (any, error) {
		return g.inner.LookupByItunesID(ctx, itunesID)
	})
}

func (g *GuardedAdapter) ListEpisodes(ctx context.Context, rssURL string, limit int) ([]EpisodeResult, error) {
	return guardedCall[[]EpisodeResult](ctx, g, func() (any, error) {
		return g.inner.ListEpisodes(ctx, rssURL, limit)
	})
}

// guardedCall applies rate limiting, then executes fn through the circuit
// breaker, then type-asserts the result. T is the concrete return type of
// the wrapped Adapter method.
func guardedCall[T any](ctx context.Context, g *GuardedAdapter, fn func() (any, error)) (T, error) {
	var zero T
	if err := g.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	result, err := g.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(g.Name(), "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(g.Name(), "failure").Inc()
		}
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(g.Name(), "success").Inc()

	typed, ok := result.(T)
	if !ok {
		return zero, errors.New("adapter: unexpected circuit breaker result type")
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
