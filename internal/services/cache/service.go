// Package cache provides the durable read-through cache over economic events
package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// Service implements EconomicDataCache. Each cache key moves through three
// states: Fresh (serve without refresh), Stale (refresh then serve), and
// Disabled (too many failed refreshes; serve last snapshot, no auto refresh).
// Refreshes are serialized per key — concurrent callers share one in-flight
// refresh instead of racing independent writes.
type Service struct {
	storage    interfaces.StorageManager
	aggregator interfaces.CalendarService
	logger     *common.Logger

	ttl       time.Duration
	maxErrors int
	retention time.Duration
	readOnly  bool

	group singleflight.Group
	now   func() time.Time // injectable clock for testing
}

// Option configures the cache service
type Option func(*Service)

// WithTTL sets the refresh interval
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithMaxErrors sets the failed-refresh count that disables a cache key
func WithMaxErrors(n int) Option {
	return func(s *Service) {
		s.maxErrors = n
	}
}

// WithRetention sets how long persisted events are kept
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		s.retention = d
	}
}

// WithReadOnly disables all cache-table writes while keeping reads working
func WithReadOnly(readOnly bool) Option {
	return func(s *Service) {
		s.readOnly = readOnly
	}
}

// NewService creates a new durable cache service
func NewService(storage interfaces.StorageManager, aggregator interfaces.CalendarService, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		storage:    storage,
		aggregator: aggregator,
		logger:     logger,
		ttl:        common.FreshnessEconomicEvents,
		maxErrors:  common.MaxErrorCount,
		retention:  common.RetentionHorizon,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetEconomicEvents serves events for a query shape. Reads never surface an
// empty result when a previous snapshot exists: refresh failures downgrade
// to serving stale data.
func (s *Service) GetEconomicEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error) {
	key := q.CacheKey()
	meta, err := s.storage.CacheMetaStore().Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	switch {
	case q.Force:
		// Forced refresh bypasses freshness and revives disabled keys
		s.refreshShared(ctx, q)
	case meta == nil:
		// First sighting of this query shape
		s.refreshShared(ctx, q)
	case meta.Servable(s.now(), s.maxErrors):
		// Fresh: serve without any network activity
	case meta.Disabled(s.maxErrors):
		// Disabled: serve the last persisted snapshot unchanged
		s.logger.Warn().Str("cache_key", key).Int("error_count", meta.ErrorCount).
			Msg("Cache key disabled, serving last snapshot")
	default:
		// Stale: one refresh cycle per read call, shared across callers
		s.refreshShared(ctx, q)
	}

	events, err := s.storage.EventStore().GetEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached events: %w", err)
	}
	return events, nil
}

// refreshShared runs one refresh for the key via singleflight. Refresh
// errors are logged, not returned — the caller still gets the last
// persisted snapshot.
func (s *Service) refreshShared(ctx context.Context, q models.EventQuery) {
	key := q.CacheKey()
	_, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.refresh(ctx, q)
	})
	if err != nil {
		s.logger.Warn().Str("cache_key", key).Err(err).
			Msg("Refresh failed, serving stale data if available")
	}
}

// Refresh forces one refresh cycle for a query shape and reports the number
// of events persisted.
func (s *Service) Refresh(ctx context.Context, q models.EventQuery) (int, error) {
	key := q.CacheKey()
	n, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.refresh(ctx, q)
	})
	if err != nil {
		return 0, err
	}
	return n.(int), nil
}

// refresh performs one refresh cycle: aggregate, upsert, record metadata.
// Metadata is written on both success and failure so the error count and
// next_update horizon track every attempt.
func (s *Service) refresh(ctx context.Context, q models.EventQuery) (int, error) {
	key := q.CacheKey()
	now := s.now()

	agg, err := s.aggregator.GetEconomicEvents(ctx, q)
	if err == nil && agg.AllFailed() {
		err = fmt.Errorf("all providers failed for %s", key)
	}

	if err != nil {
		s.recordFailure(ctx, key, now, err)
		return 0, err
	}

	if s.readOnly {
		s.logger.Debug().Str("cache_key", key).Msg("Read-only mode, skipping cache write")
		return len(agg.Events), nil
	}

	count, upsertErr := s.storage.EventStore().UpsertEvents(ctx, agg.Events)
	if upsertErr != nil {
		// Persistence failure downgrades to a warning; the read path still
		// has the last-known-good snapshot.
		s.logger.Warn().Str("cache_key", key).Err(upsertErr).Msg("Failed to persist events")
		s.recordFailure(ctx, key, now, upsertErr)
		return 0, upsertErr
	}

	meta := &models.CacheMetadata{
		CacheKey:    key,
		LastUpdated: now,
		NextUpdate:  now.Add(s.ttl),
		TotalEvents: count,
		Source:      primarySource(agg),
		ErrorCount:  0,
		IsActive:    true,
	}
	if err := s.storage.CacheMetaStore().Upsert(ctx, meta); err != nil {
		s.logger.Warn().Str("cache_key", key).Err(err).Msg("Failed to update cache metadata")
	}

	s.logger.Info().Str("cache_key", key).Int("events", count).
		Time("next_update", meta.NextUpdate).Msg("Cache refreshed")

	return count, nil
}

// recordFailure increments the error count for a key, creating the metadata
// row if this is the first attempt. The last successful snapshot stays
// servable until the key is disabled.
func (s *Service) recordFailure(ctx context.Context, key string, now time.Time, cause error) {
	if s.readOnly {
		return
	}

	meta, err := s.storage.CacheMetaStore().Get(ctx, key)
	if err != nil || meta == nil {
		meta = &models.CacheMetadata{CacheKey: key, IsActive: true}
	}

	meta.ErrorCount++
	meta.LastError = cause.Error()
	meta.LastUpdated = now
	meta.NextUpdate = now.Add(s.ttl)

	if err := s.storage.CacheMetaStore().Upsert(ctx, meta); err != nil {
		s.logger.Warn().Str("cache_key", key).Err(err).Msg("Failed to record refresh failure")
	}

	if meta.Disabled(s.maxErrors) {
		s.logger.Error().Str("cache_key", key).Int("error_count", meta.ErrorCount).
			Msg("Cache key disabled after repeated refresh failures")
	}
}

// Cleanup removes events older than the retention horizon.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	if s.readOnly {
		return 0, nil
	}

	cutoff := s.now().Add(-s.retention).Format("2006-01-02")
	removed, err := s.storage.EventStore().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup failed: %w", err)
	}

	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Str("cutoff", cutoff).Msg("Retention cleanup complete")
	}
	return removed, nil
}

// Status returns cache metadata for all tracked query shapes.
func (s *Service) Status(ctx context.Context) ([]*models.CacheMetadata, error) {
	return s.storage.CacheMetaStore().List(ctx)
}

// primarySource names the provider that contributed the most events.
func primarySource(agg *models.AggregationResult) string {
	best := ""
	max := 0
	for _, p := range agg.Providers {
		if p.Err == nil && p.Events > max {
			best = p.Provider
			max = p.Events
		}
	}
	return best
}

// Ensure Service implements EconomicDataCache
var _ interfaces.EconomicDataCache = (*Service)(nil)
