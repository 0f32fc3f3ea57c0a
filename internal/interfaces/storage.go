package interfaces

import (
	"context"

	"github.com/seanmcgrath/macrocal/internal/models"
)

// EventStore persists canonical economic events
type EventStore interface {
	// UpsertEvents writes events keyed on event_id, last write wins
	UpsertEvents(ctx context.Context, events []models.EconomicEvent) (int, error)

	// GetEvents reads events matching a query shape, sorted by (date, time)
	GetEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error)

	// DeleteOlderThan removes events dated before the cutoff (YYYY-MM-DD)
	DeleteOlderThan(ctx context.Context, cutoff string) (int64, error)
}

// CacheMetaStore persists per-query-shape cache metadata
type CacheMetaStore interface {
	// Get returns metadata for a cache key, or nil when absent
	Get(ctx context.Context, cacheKey string) (*models.CacheMetadata, error)

	// Upsert writes metadata keyed on cache_key
	Upsert(ctx context.Context, meta *models.CacheMetadata) error

	// List returns metadata for all tracked cache keys
	List(ctx context.Context) ([]*models.CacheMetadata, error)
}

// EarningsStore persists earnings calendar entries
type EarningsStore interface {
	// ReplaceWindow overwrites all reports within [from, to] with the given set
	ReplaceWindow(ctx context.Context, from, to string, reports []models.EarningsReport) error

	// GetReports reads reports with report_date within [from, to]
	GetReports(ctx context.Context, from, to string) ([]models.EarningsReport, error)
}

// StorageManager owns the database connection and its stores
type StorageManager interface {
	EventStore() EventStore
	CacheMetaStore() CacheMetaStore
	EarningsStore() EarningsStore

	// Ping verifies database connectivity
	Ping(ctx context.Context) error

	// Close releases the connection pool
	Close() error
}
