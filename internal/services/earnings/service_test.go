package earnings

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// Freshness is judged against the wall clock, so the test clock is anchored
// to it rather than a fixed date.
var testNow = time.Now()

func fltPtr(f float64) *float64 { return &f }

// --- mock clients ---

type mockEODHDClient struct {
	earnings []models.EODHDEarnings
	err      error
	calls    int
}

func (m *mockEODHDClient) GetEconomicEvents(_ context.Context, _ ...interfaces.CalendarOption) ([]models.EODHDEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEODHDClient) GetEarnings(_ context.Context, _, _ time.Time) ([]models.EODHDEarnings, error) {
	m.calls++
	return m.earnings, m.err
}

type mockFinnhubClient struct {
	earnings []models.FinnhubEarnings
	err      error
	calls    int
}

func (m *mockFinnhubClient) GetEconomicEvents(_ context.Context, _ ...interfaces.CalendarOption) ([]models.FinnhubEvent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockFinnhubClient) GetEarnings(_ context.Context, _, _ time.Time) ([]models.FinnhubEarnings, error) {
	m.calls++
	return m.earnings, m.err
}

// --- mock storage ---

type mockEarningsStore struct {
	mu       sync.Mutex
	reports  []models.EarningsReport
	replaces int
}

func (m *mockEarningsStore) ReplaceWindow(_ context.Context, from, to string, reports []models.EarningsReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.EarningsReport
	for _, r := range m.reports {
		if r.ReportDate < from || r.ReportDate > to {
			kept = append(kept, r)
		}
	}
	m.reports = append(kept, reports...)
	m.replaces++
	return nil
}

func (m *mockEarningsStore) GetReports(_ context.Context, from, to string) ([]models.EarningsReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EarningsReport
	for _, r := range m.reports {
		if r.ReportDate >= from && r.ReportDate <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockStorageManager struct {
	earnings *mockEarningsStore
}

func (m *mockStorageManager) EventStore() interfaces.EventStore         { return nil }
func (m *mockStorageManager) CacheMetaStore() interfaces.CacheMetaStore { return nil }
func (m *mockStorageManager) EarningsStore() interfaces.EarningsStore   { return m.earnings }
func (m *mockStorageManager) Ping(_ context.Context) error              { return nil }
func (m *mockStorageManager) Close() error                              { return nil }

func newTestService(eodhd interfaces.EODHDClient, finnhub interfaces.FinnhubClient, store *mockEarningsStore, opts ...Option) *Service {
	svc := NewService(eodhd, finnhub, &mockStorageManager{earnings: store}, common.NewSilentLogger(), opts...)
	svc.now = func() time.Time { return testNow }
	return svc
}

// --- tests ---

func TestGetEarnings_PrimaryProvider(t *testing.T) {
	eodhd := &mockEODHDClient{earnings: []models.EODHDEarnings{
		{Code: "AAPL.US", ReportDate: "2026-04-28", Actual: fltPtr(2.4), Estimate: fltPtr(2.0)},
	}}
	finnhub := &mockFinnhubClient{}
	store := &mockEarningsStore{}

	svc := newTestService(eodhd, finnhub, store)

	reports, err := svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)
	if err != nil {
		t.Fatalf("GetEarnings failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Code != "AAPL.US" {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[0].Percent == nil || *reports[0].Percent != 20.0 {
		t.Errorf("Percent = %v, want surprise computed", reports[0].Percent)
	}
	if finnhub.calls != 0 {
		t.Errorf("fallback called %d times with primary healthy", finnhub.calls)
	}
}

func TestGetEarnings_FallbackOnPrimaryFailure(t *testing.T) {
	eodhd := &mockEODHDClient{err: fmt.Errorf("quota exhausted")}
	finnhub := &mockFinnhubClient{earnings: []models.FinnhubEarnings{
		{Symbol: "MSFT", Date: "2026-04-29", Hour: "bmo"},
	}}
	store := &mockEarningsStore{}

	svc := newTestService(eodhd, finnhub, store)

	reports, err := svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)
	if err != nil {
		t.Fatalf("GetEarnings failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Code != "MSFT" {
		t.Fatalf("reports = %+v, want Finnhub fallback data", reports)
	}
}

func TestGetEarnings_AllProvidersFailedServesSnapshot(t *testing.T) {
	store := &mockEarningsStore{reports: []models.EarningsReport{
		{Code: "OLD", ReportDate: "2026-04-10"},
	}}
	eodhd := &mockEODHDClient{err: fmt.Errorf("down")}
	finnhub := &mockFinnhubClient{err: fmt.Errorf("down")}

	svc := newTestService(eodhd, finnhub, store)

	reports, err := svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)
	if err != nil {
		t.Fatalf("total provider failure must downgrade to snapshot serve: %v", err)
	}
	if len(reports) != 1 || reports[0].Code != "OLD" {
		t.Fatalf("reports = %+v, want last snapshot", reports)
	}
}

func TestGetEarnings_FreshWindowSkipsRefetch(t *testing.T) {
	eodhd := &mockEODHDClient{earnings: []models.EODHDEarnings{
		{Code: "AAPL.US", ReportDate: "2026-04-28"},
	}}
	store := &mockEarningsStore{}

	svc := newTestService(eodhd, nil, store)

	svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)
	svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)

	if eodhd.calls != 1 {
		t.Errorf("provider called %d times for a fresh window, want 1", eodhd.calls)
	}
}

func TestGetEarnings_ForceRefetches(t *testing.T) {
	eodhd := &mockEODHDClient{earnings: []models.EODHDEarnings{
		{Code: "AAPL.US", ReportDate: "2026-04-28"},
	}}
	store := &mockEarningsStore{}

	svc := newTestService(eodhd, nil, store)

	svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)
	svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", true)

	if eodhd.calls != 2 {
		t.Errorf("provider called %d times with force, want 2", eodhd.calls)
	}
	if store.replaces != 2 {
		t.Errorf("window replaced %d times, want 2", store.replaces)
	}
}

func TestGetEarnings_ReadOnlySkipsWrites(t *testing.T) {
	eodhd := &mockEODHDClient{earnings: []models.EODHDEarnings{
		{Code: "AAPL.US", ReportDate: "2026-04-28"},
	}}
	store := &mockEarningsStore{}

	svc := newTestService(eodhd, nil, store, WithReadOnly(true))

	svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)

	if store.replaces != 0 {
		t.Errorf("window replaced %d times in read-only mode", store.replaces)
	}
}

func TestGetEarnings_EmptyWindowDoesNotOverwrite(t *testing.T) {
	store := &mockEarningsStore{reports: []models.EarningsReport{
		{Code: "KEEP", ReportDate: "2026-04-10"},
	}}
	eodhd := &mockEODHDClient{} // healthy but quiet
	finnhub := &mockFinnhubClient{}

	svc := newTestService(eodhd, finnhub, store)

	reports, err := svc.GetEarnings(context.Background(), "2026-04-01", "2026-04-30", false)
	if err != nil {
		t.Fatalf("GetEarnings failed: %v", err)
	}
	if store.replaces != 0 {
		t.Errorf("quiet window overwrote the store %d times", store.replaces)
	}
	if len(reports) != 1 || reports[0].Code != "KEEP" {
		t.Errorf("reports = %+v", reports)
	}
}
