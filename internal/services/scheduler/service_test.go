package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// --- mock cache ---

type mockCache struct {
	refreshed []models.EventQuery
	refreshFn func(q models.EventQuery) (int, error)
	cleanups  int
}

func (m *mockCache) GetEconomicEvents(_ context.Context, _ models.EventQuery) ([]models.EconomicEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCache) Refresh(_ context.Context, q models.EventQuery) (int, error) {
	m.refreshed = append(m.refreshed, q)
	if m.refreshFn != nil {
		return m.refreshFn(q)
	}
	return 1, nil
}

func (m *mockCache) Cleanup(_ context.Context) (int64, error) {
	m.cleanups++
	return 0, nil
}

func (m *mockCache) Status(_ context.Context) ([]*models.CacheMetadata, error) {
	return nil, nil
}

// --- mock earnings ---

type mockEarnings struct {
	calls  int
	forced bool
	err    error
}

func (m *mockEarnings) GetEarnings(_ context.Context, _, _ string, force bool) ([]models.EarningsReport, error) {
	m.calls++
	m.forced = force
	if m.err != nil {
		return nil, m.err
	}
	return []models.EarningsReport{{Code: "AAPL.US"}}, nil
}

func newTestService(cache *mockCache, earnings *mockEarnings, opts ...Option) *Service {
	var svc *Service
	if earnings == nil {
		svc = NewService(cache, nil, common.NewSilentLogger(), opts...)
	} else {
		svc = NewService(cache, earnings, common.NewSilentLogger(), opts...)
	}
	svc.now = func() time.Time { return testNow }
	return svc
}

// --- tests ---

func TestTargets_DefaultWindow(t *testing.T) {
	svc := newTestService(&mockCache{}, nil)

	targets := svc.Targets()
	if len(targets) != 1 {
		t.Fatalf("targets = %d, want 1 default", len(targets))
	}
	if targets[0].Country != "US" {
		t.Errorf("Country = %q", targets[0].Country)
	}
	if targets[0].From != "2026-03-15" || targets[0].To != "2026-04-14" {
		t.Errorf("window = %s..%s", targets[0].From, targets[0].To)
	}
}

func TestTargets_CountriesSlideWithClock(t *testing.T) {
	svc := newTestService(&mockCache{}, nil, WithCountries([]string{"US", "DE"}, 14))

	targets := svc.Targets()
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
	if targets[1].Country != "DE" || targets[1].To != "2026-03-29" {
		t.Errorf("second target = %+v", targets[1])
	}

	// A later run derives a later window
	svc.now = func() time.Time { return testNow.AddDate(0, 0, 10) }
	if got := svc.Targets()[0].From; got != "2026-03-25" {
		t.Errorf("From after clock advance = %q", got)
	}
}

func TestManualUpdate(t *testing.T) {
	cache := &mockCache{}
	earnings := &mockEarnings{}
	svc := newTestService(cache, earnings, WithCountries([]string{"US", "DE"}, 30))

	report, err := svc.ManualUpdate(context.Background())
	if err != nil {
		t.Fatalf("ManualUpdate failed: %v", err)
	}

	if !report.Manual {
		t.Error("report not marked manual")
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if report.Succeeded != 3 || report.Failed != 0 {
		t.Errorf("succeeded/failed = %d/%d, want 3/0", report.Succeeded, report.Failed)
	}

	if len(cache.refreshed) != 2 {
		t.Fatalf("refreshed %d targets, want 2", len(cache.refreshed))
	}
	for _, q := range cache.refreshed {
		if !q.Force {
			t.Errorf("manual refresh target not forced: %+v", q)
		}
	}
	if earnings.calls != 1 || !earnings.forced {
		t.Errorf("earnings calls/forced = %d/%v", earnings.calls, earnings.forced)
	}
}

func TestManualUpdate_PartialFailure(t *testing.T) {
	cache := &mockCache{
		refreshFn: func(q models.EventQuery) (int, error) {
			if q.Country == "DE" {
				return 0, fmt.Errorf("providers down")
			}
			return 5, nil
		},
	}
	svc := newTestService(cache, nil, WithCountries([]string{"US", "DE"}, 30))

	report, err := svc.ManualUpdate(context.Background())
	if err != nil {
		t.Fatalf("partial failure must not error: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 1/1", report.Succeeded, report.Failed)
	}

	var failed *models.UpdateTargetResult
	for i := range report.Targets {
		if report.Targets[i].Error != "" {
			failed = &report.Targets[i]
		}
	}
	if failed == nil {
		t.Fatal("no failed target recorded")
	}
}

func TestManualUpdate_AllFailed(t *testing.T) {
	cache := &mockCache{
		refreshFn: func(models.EventQuery) (int, error) { return 0, fmt.Errorf("down") },
	}
	svc := newTestService(cache, nil)

	report, err := svc.ManualUpdate(context.Background())
	if err == nil {
		t.Fatal("expected error when every target failed")
	}
	if report == nil || report.Failed == 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestStartStop(t *testing.T) {
	cache := &mockCache{}
	svc := newTestService(cache, nil, WithSchedules("@every 1h", "@every 24h"))

	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Start(); err == nil {
		t.Error("second Start did not fail")
	}
	svc.Stop()

	// Stop again is a no-op
	svc.Stop()
}

func TestStart_InvalidSchedule(t *testing.T) {
	svc := newTestService(&mockCache{}, nil, WithSchedules("not a schedule", "@every 24h"))

	if err := svc.Start(); err == nil {
		t.Error("invalid refresh schedule accepted")
		svc.Stop()
	}
}
