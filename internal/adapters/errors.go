package adapters

import (
	"errors"
	"fmt"
)

// Error classes an adapter failure so callers (the discovery fetcher, the
// enrichment orchestrator) can decide whether to retry, back off, or give
// up without inspecting provider-specific error strings.
var (
	// ErrAuth indicates the adapter's credentials were rejected.
	ErrAuth = errors.New("adapter: authentication failed")

	// ErrRateLimit indicates the provider throttled the request; retry
	// with the configured exponential backoff.
	ErrRateLimit = errors.New("adapter: rate limited")

	// ErrNotFound indicates the queried entity does not exist upstream.
	ErrNotFound = errors.New("adapter: not found")

	// ErrTransient indicates a retryable failure (timeout, 5xx, reset).
	ErrTransient = errors.New("adapter: transient failure")

	// ErrPermanent indicates a non-retryable failure (malformed request,
	// permanently removed feed).
	ErrPermanent = errors.New("adapter: permanent failure")
)

// ClassifyHTTPStatus maps an HTTP status code from a directory API to one
// of the sentinel error kinds above.
func ClassifyHTTPStatus(status int, body string) error {
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w: status %d", ErrAuth, status)
	case status == 404:
		return fmt.Errorf("%w: status %d", ErrNotFound, status)
	case status == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimit, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, status)
	case status >= 400:
		return fmt.Errorf("%w: status %d body=%s", ErrPermanent, status, body)
	default:
		return nil
	}
}
