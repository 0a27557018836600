package quizgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ash-trivia/internal/domain"
)

var (
	errRateLimited = errors.New("rate limited")
	errUnavailable = errors.New("provider unavailable")
)

// classify wraps a provider failure as a PROVIDER_ERROR, tagging rate limits
// and server side failures. Caller cancellation is passed through untouched.
func classify(provider string, status int, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch {
	case status == http.StatusTooManyRequests:
		err = fmt.Errorf("%w: %w", errRateLimited, err)
	case status >= 500, status == 0:
		err = fmt.Errorf("%w: %w", errUnavailable, err)
	}
	return domain.NewProviderError(provider, err)
}

// IsRateLimited reports whether err came from a provider rejecting the call
// for rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, errRateLimited)
}
