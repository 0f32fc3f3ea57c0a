// Package calendar aggregates economic events across provider clients
package calendar

import (
	"context"
	"sort"
	"sync"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// Service implements CalendarService: a fan-out/gather over all registered
// providers with partial-failure tolerance. A failing provider contributes
// zero events; it never aborts the aggregation.
type Service struct {
	providers []interfaces.EventProvider
	logger    *common.Logger
}

// NewService creates a new calendar aggregation service.
// nil providers are skipped so callers can pass unconfigured clients.
func NewService(logger *common.Logger, providers ...interfaces.EventProvider) *Service {
	s := &Service{logger: logger}
	for _, p := range providers {
		if p != nil {
			s.providers = append(s.providers, p)
		}
	}
	return s
}

// GetEconomicEvents launches all provider fetches concurrently, gathers
// settled results, and returns the concatenation sorted ascending by
// (date, time). Completion order never affects output order.
func (s *Service) GetEconomicEvents(ctx context.Context, q models.EventQuery) (*models.AggregationResult, error) {
	results := make([]models.ProviderResult, len(s.providers))
	gathered := make([][]models.EconomicEvent, len(s.providers))

	var wg sync.WaitGroup
	for i, provider := range s.providers {
		wg.Add(1)
		go func(i int, provider interfaces.EventProvider) {
			defer wg.Done()

			events, err := provider.FetchEvents(ctx, q)
			result := models.ProviderResult{Provider: provider.Name(), Events: len(events)}
			if err != nil {
				result.Err = err
				result.Error = err.Error()
				result.RateLimited = common.IsRateLimit(err)
				s.logger.Warn().
					Str("provider", provider.Name()).
					Bool("rate_limited", result.RateLimited).
					Err(err).
					Msg("Provider fetch failed")
			}
			results[i] = result
			gathered[i] = events
		}(i, provider)
	}
	wg.Wait()

	var events []models.EconomicEvent
	for _, batch := range gathered {
		events = append(events, batch...)
	}

	// Stable: equal (date, time) keeps insertion order
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})

	agg := &models.AggregationResult{Events: events, Providers: results}

	s.logger.Info().
		Int("events", len(events)).
		Int("providers", len(s.providers)).
		Str("cache_key", q.CacheKey()).
		Msg("Aggregated economic events")

	return agg, nil
}

// Ensure Service implements CalendarService
var _ interfaces.CalendarService = (*Service)(nil)
