// Package earnings maintains the earnings calendar
package earnings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
	"github.com/seanmcgrath/macrocal/internal/normalize"
)

// Service implements EarningsService with EODHD-primary and Finnhub-fallback.
// Refetches overwrite the whole requested window — earnings entries have no
// persistent identity beyond (code, report_date).
type Service struct {
	eodhd    interfaces.EODHDClient
	finnhub  interfaces.FinnhubClient
	storage  interfaces.StorageManager
	logger   *common.Logger
	ttl      time.Duration
	readOnly bool
	now      func() time.Time // injectable clock for testing

	mu        sync.Mutex
	refreshed map[string]time.Time // window key -> last successful refetch
}

// Option configures the earnings service
type Option func(*Service)

// WithTTL sets the refetch interval
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithReadOnly disables calendar writes while keeping reads working
func WithReadOnly(readOnly bool) Option {
	return func(s *Service) {
		s.readOnly = readOnly
	}
}

// NewService creates a new earnings service.
// finnhub may be nil — the fallback is skipped when unavailable.
func NewService(eodhd interfaces.EODHDClient, finnhub interfaces.FinnhubClient, storage interfaces.StorageManager, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		eodhd:     eodhd,
		finnhub:   finnhub,
		storage:   storage,
		logger:    logger,
		ttl:       common.FreshnessEarnings,
		now:       time.Now,
		refreshed: make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetEarnings serves earnings reports for a date window, refetching when the
// window is stale or force is set. Fetch failures downgrade to serving the
// last persisted snapshot.
func (s *Service) GetEarnings(ctx context.Context, from, to string, force bool) ([]models.EarningsReport, error) {
	windowKey := from + "_" + to

	s.mu.Lock()
	last := s.refreshed[windowKey]
	s.mu.Unlock()

	if force || !common.IsFresh(last, s.ttl) {
		if err := s.refetch(ctx, from, to, windowKey); err != nil {
			s.logger.Warn().Str("window", windowKey).Err(err).
				Msg("Earnings refetch failed, serving last snapshot")
		}
	}

	reports, err := s.storage.EarningsStore().GetReports(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read earnings calendar: %w", err)
	}
	return reports, nil
}

// refetch pulls the window from EODHD, falling back to Finnhub, and
// overwrites the persisted window with whichever result succeeded.
func (s *Service) refetch(ctx context.Context, from, to, windowKey string) error {
	now := s.now()

	fromT, err := time.Parse("2006-01-02", from)
	if err != nil {
		fromT = now
	}
	toT, err := time.Parse("2006-01-02", to)
	if err != nil {
		toT = now.AddDate(0, 0, 30)
	}

	reports, err := s.fetchEODHD(ctx, fromT, toT, now)
	if err != nil || len(reports) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("EODHD earnings fetch failed, trying Finnhub")
		}
		var fallbackErr error
		reports, fallbackErr = s.fetchFinnhub(ctx, fromT, toT, now)
		if fallbackErr != nil {
			return fmt.Errorf("all earnings providers failed: %w", fallbackErr)
		}
	}

	if len(reports) == 0 {
		return nil // genuinely quiet window, nothing to overwrite
	}

	if s.readOnly {
		s.logger.Debug().Str("window", windowKey).Msg("Read-only mode, skipping earnings write")
		return nil
	}

	if err := s.storage.EarningsStore().ReplaceWindow(ctx, from, to, reports); err != nil {
		return fmt.Errorf("failed to persist earnings window: %w", err)
	}

	s.mu.Lock()
	s.refreshed[windowKey] = now
	s.mu.Unlock()

	s.logger.Info().Str("window", windowKey).Int("reports", len(reports)).Msg("Earnings calendar refreshed")
	return nil
}

func (s *Service) fetchEODHD(ctx context.Context, from, to time.Time, now time.Time) ([]models.EarningsReport, error) {
	if s.eodhd == nil {
		return nil, fmt.Errorf("EODHD client not configured")
	}

	raw, err := s.eodhd.GetEarnings(ctx, from, to)
	if err != nil {
		return nil, err
	}

	reports := make([]models.EarningsReport, 0, len(raw))
	for _, r := range raw {
		reports = append(reports, normalize.EarningsFromEODHD(r, now))
	}
	return reports, nil
}

func (s *Service) fetchFinnhub(ctx context.Context, from, to time.Time, now time.Time) ([]models.EarningsReport, error) {
	if s.finnhub == nil {
		return nil, fmt.Errorf("Finnhub client not configured")
	}

	raw, err := s.finnhub.GetEarnings(ctx, from, to)
	if err != nil {
		return nil, err
	}

	reports := make([]models.EarningsReport, 0, len(raw))
	for _, r := range raw {
		reports = append(reports, normalize.EarningsFromFinnhub(r, now))
	}
	return reports, nil
}

// Ensure Service implements EarningsService
var _ interfaces.EarningsService = (*Service)(nil)
