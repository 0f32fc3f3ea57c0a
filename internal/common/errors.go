// Package common provides shared utilities for macrocal
package common

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when a provider rejects a request with HTTP 429.
// It is distinguished from ordinary HTTP failures so callers can back off
// instead of treating the provider as down.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limit exceeded, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limit exceeded", e.Provider)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
