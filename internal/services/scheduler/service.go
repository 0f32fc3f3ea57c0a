// Package scheduler runs periodic cache refresh and retention cleanup
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// Service implements SchedulerService on a process-wide cron. Start performs
// one immediate refresh, then refresh runs on the refresh schedule and
// retention cleanup on the cleanup schedule until Stop. Stopping clears the
// timers only — an in-flight refresh completes cooperatively.
type Service struct {
	cache    interfaces.EconomicDataCache
	earnings interfaces.EarningsService
	logger   *common.Logger

	refreshSchedule string
	cleanupSchedule string
	targets         []models.EventQuery
	countries       []string
	windowDays      int

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	now     func() time.Time // injectable clock for testing
}

// Option configures the scheduler
type Option func(*Service)

// WithSchedules sets the cron specs for refresh and cleanup
func WithSchedules(refresh, cleanup string) Option {
	return func(s *Service) {
		s.refreshSchedule = refresh
		s.cleanupSchedule = cleanup
	}
}

// WithTargets sets fixed query shapes refreshed each cycle
func WithTargets(targets []models.EventQuery) Option {
	return func(s *Service) {
		s.targets = targets
	}
}

// WithCountries sets per-country refresh targets whose date window is
// re-derived from the clock on every run
func WithCountries(countries []string, windowDays int) Option {
	return func(s *Service) {
		s.countries = countries
		if windowDays > 0 {
			s.windowDays = windowDays
		}
	}
}

// NewService creates a new scheduler.
// earnings may be nil — the earnings window refresh is then skipped.
func NewService(cache interfaces.EconomicDataCache, earnings interfaces.EarningsService, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		cache:           cache,
		earnings:        earnings,
		logger:          logger,
		refreshSchedule: "@every 6h",
		cleanupSchedule: "@every 24h",
		windowDays:      30,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Targets returns the refresh targets. Fixed targets are used verbatim;
// country targets get a fresh date window from the clock on every call so
// the refresh horizon slides forward with time.
func (s *Service) Targets() []models.EventQuery {
	if len(s.targets) > 0 {
		return s.targets
	}

	now := s.now()
	from := now.Format("2006-01-02")
	to := now.AddDate(0, 0, s.windowDays).Format("2006-01-02")

	countries := s.countries
	if len(countries) == 0 {
		countries = []string{"US"}
	}

	targets := make([]models.EventQuery, 0, len(countries))
	for _, country := range countries {
		targets = append(targets, models.EventQuery{Country: country, From: from, To: to})
	}
	return targets
}

// Start begins the periodic schedule with one immediate refresh.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.refreshSchedule, func() {
		if _, err := s.runRefresh(context.Background(), false, false); err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled refresh completed with errors")
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.refreshSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.cleanupSchedule, func() {
		if _, err := s.cache.Cleanup(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled cleanup failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.cleanupSchedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("refresh", s.refreshSchedule).
		Str("cleanup", s.cleanupSchedule).
		Msg("Scheduler started")

	// Immediate refresh so the cache is warm before the first tick
	go func() {
		if _, err := s.runRefresh(context.Background(), false, false); err != nil {
			s.logger.Warn().Err(err).Msg("Startup refresh completed with errors")
		}
	}()

	return nil
}

// Stop clears the timers. In-flight jobs complete cooperatively.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	s.running = false

	// Wait briefly for in-flight jobs rather than interrupting them
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Scheduler stopped with jobs still in flight")
	}

	s.logger.Info().Msg("Scheduler stopped")
}

// ManualUpdate runs the refresh synchronously, forcing disabled cache keys
// back to life, and reports per-target success/failure.
func (s *Service) ManualUpdate(ctx context.Context) (*models.UpdateReport, error) {
	return s.runRefresh(ctx, true, true)
}

// runRefresh refreshes every target and the earnings window. force revives
// disabled cache keys; manual marks the report as operator-triggered.
func (s *Service) runRefresh(ctx context.Context, force, manual bool) (*models.UpdateReport, error) {
	report := &models.UpdateReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Manual:    manual,
	}

	for _, target := range s.Targets() {
		target.Force = force
		result := models.UpdateTargetResult{Target: target.CacheKey()}

		count, err := s.cache.Refresh(ctx, target)
		if err != nil {
			result.Error = err.Error()
			report.Failed++
		} else {
			result.Events = count
			report.Succeeded++
		}
		report.Targets = append(report.Targets, result)
	}

	if s.earnings != nil {
		now := s.now()
		from := now.Format("2006-01-02")
		to := now.AddDate(0, 0, s.windowDays).Format("2006-01-02")
		result := models.UpdateTargetResult{Target: "earnings_" + from + "_" + to}

		reports, err := s.earnings.GetEarnings(ctx, from, to, force)
		if err != nil {
			result.Error = err.Error()
			report.Failed++
		} else {
			result.Events = len(reports)
			report.Succeeded++
		}
		report.Targets = append(report.Targets, result)
	}

	report.FinishedAt = s.now()

	s.logger.Info().
		Str("run_id", report.RunID).
		Bool("manual", manual).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Refresh run complete")

	if report.Failed > 0 && report.Succeeded == 0 {
		return report, fmt.Errorf("all %d refresh targets failed", report.Failed)
	}
	return report, nil
}

// Ensure Service implements SchedulerService
var _ interfaces.SchedulerService = (*Service)(nil)
