package models

import "time"

// CacheMetadata tracks refresh state for one cache key (query shape).
// Rows are created on first successful fetch and updated on every refresh
// attempt; they are never deleted.
type CacheMetadata struct {
	CacheKey    string    `json:"cache_key" db:"cache_key"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	NextUpdate  time.Time `json:"next_update" db:"next_update"`
	TotalEvents int       `json:"total_events" db:"total_events"`
	Source      string    `json:"source" db:"source"`
	ErrorCount  int       `json:"error_count" db:"error_count"`
	LastError   string    `json:"last_error,omitempty" db:"last_error"`
	IsActive    bool      `json:"is_active" db:"is_active"`
}

// Servable reports whether the cached snapshot can be served without a
// refresh: now < next_update AND is_active AND error_count < maxErrors.
func (m *CacheMetadata) Servable(now time.Time, maxErrors int) bool {
	return now.Before(m.NextUpdate) && m.IsActive && m.ErrorCount < maxErrors
}

// Disabled reports whether the key has failed too many refreshes and is
// skipped for automatic refresh until explicitly forced.
func (m *CacheMetadata) Disabled(maxErrors int) bool {
	return m.ErrorCount >= maxErrors
}
