// Package common provides shared utilities for macrocal
package common

import "time"

// Freshness TTLs and cache policy for data components
const (
	FreshnessEconomicEvents   = 6 * time.Hour
	FreshnessEarnings         = 6 * time.Hour
	FreshnessProviderResponse = 5 * time.Minute // request-level client cache only

	// RetentionHorizon is how long persisted events are kept before the
	// cleanup job removes them.
	RetentionHorizon = 180 * 24 * time.Hour

	// MaxErrorCount is the number of consecutive failed refreshes after
	// which a cache key is disabled for automatic refresh.
	MaxErrorCount = 3
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
