package interfaces

import (
	"context"

	"github.com/seanmcgrath/macrocal/internal/models"
)

// CalendarService aggregates economic events across providers
type CalendarService interface {
	// GetEconomicEvents fans out to all configured providers, tolerating
	// partial failure, and returns normalized events sorted by (date, time)
	GetEconomicEvents(ctx context.Context, q models.EventQuery) (*models.AggregationResult, error)
}

// EconomicDataCache is the read-through durable cache over economic events
type EconomicDataCache interface {
	// GetEconomicEvents serves events for a query shape, refreshing from
	// providers when the cache entry is stale and not disabled
	GetEconomicEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error)

	// Refresh forces one refresh cycle for a query shape and reports the
	// number of events persisted
	Refresh(ctx context.Context, q models.EventQuery) (int, error)

	// Cleanup removes events older than the retention horizon
	Cleanup(ctx context.Context) (int64, error)

	// Status returns cache metadata for all tracked query shapes
	Status(ctx context.Context) ([]*models.CacheMetadata, error)
}

// EarningsService maintains the earnings calendar
type EarningsService interface {
	// GetEarnings serves earnings reports for a date window, refetching
	// when stale; refetches overwrite the window
	GetEarnings(ctx context.Context, from, to string, force bool) ([]models.EarningsReport, error)
}

// SchedulerService runs periodic cache refresh and cleanup
type SchedulerService interface {
	// Start begins the periodic schedule with one immediate refresh
	Start() error

	// Stop clears the timers; an in-flight refresh completes cooperatively
	Stop()

	// ManualUpdate runs the refresh synchronously and reports per-target results
	ManualUpdate(ctx context.Context) (*models.UpdateReport, error)
}
