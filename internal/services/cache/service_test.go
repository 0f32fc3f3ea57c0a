package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// --- mock storage ---

type mockEventStore struct {
	mu      sync.Mutex
	events  map[string]models.EconomicEvent
	upserts int
}

func (m *mockEventStore) UpsertEvents(_ context.Context, events []models.EconomicEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[string]models.EconomicEvent)
	}
	for _, e := range events {
		m.events[e.ID] = e
	}
	m.upserts++
	return len(events), nil
}

func (m *mockEventStore) GetEvents(_ context.Context, _ models.EventQuery) ([]models.EconomicEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EconomicEvent
	for _, e := range m.events {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEventStore) DeleteOlderThan(_ context.Context, cutoff string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, e := range m.events {
		if e.Date < cutoff {
			delete(m.events, id)
			removed++
		}
	}
	return removed, nil
}

type mockMetaStore struct {
	mu    sync.Mutex
	metas map[string]*models.CacheMetadata
}

func (m *mockMetaStore) Get(_ context.Context, key string) (*models.CacheMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[key]
	if !ok {
		return nil, nil
	}
	copied := *meta
	return &copied, nil
}

func (m *mockMetaStore) Upsert(_ context.Context, meta *models.CacheMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metas == nil {
		m.metas = make(map[string]*models.CacheMetadata)
	}
	copied := *meta
	m.metas[meta.CacheKey] = &copied
	return nil
}

func (m *mockMetaStore) List(_ context.Context) ([]*models.CacheMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CacheMetadata
	for _, meta := range m.metas {
		out = append(out, meta)
	}
	return out, nil
}

type mockStorageManager struct {
	events *mockEventStore
	meta   *mockMetaStore
}

func newMockStorage() *mockStorageManager {
	return &mockStorageManager{events: &mockEventStore{}, meta: &mockMetaStore{}}
}

func (m *mockStorageManager) EventStore() interfaces.EventStore         { return m.events }
func (m *mockStorageManager) CacheMetaStore() interfaces.CacheMetaStore { return m.meta }
func (m *mockStorageManager) EarningsStore() interfaces.EarningsStore   { return nil }
func (m *mockStorageManager) Ping(_ context.Context) error              { return nil }
func (m *mockStorageManager) Close() error                              { return nil }

// --- mock aggregator ---

type mockAggregator struct {
	calls  int32
	result *models.AggregationResult
	err    error
	block  chan struct{} // optional; fetch blocks until closed
}

func (m *mockAggregator) GetEconomicEvents(_ context.Context, _ models.EventQuery) (*models.AggregationResult, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockAggregator) callCount() int32 { return atomic.LoadInt32(&m.calls) }

func okAggregation(ids ...string) *models.AggregationResult {
	agg := &models.AggregationResult{Providers: []models.ProviderResult{{Provider: "eodhd", Events: len(ids)}}}
	for _, id := range ids {
		agg.Events = append(agg.Events, models.EconomicEvent{ID: id, Date: "2026-03-20", Source: "eodhd"})
	}
	return agg
}

func failedAggregation() *models.AggregationResult {
	return &models.AggregationResult{Providers: []models.ProviderResult{
		{Provider: "eodhd", Err: fmt.Errorf("down"), Error: "down"},
	}}
}

func newTestService(storage *mockStorageManager, agg *mockAggregator, opts ...Option) *Service {
	svc := NewService(storage, agg, common.NewSilentLogger(), opts...)
	svc.now = func() time.Time { return testNow }
	return svc
}

var testQuery = models.EventQuery{Country: "US", From: "2026-03-15", To: "2026-04-14"}

// --- tests ---

func TestGetEconomicEvents_ColdCacheFetches(t *testing.T) {
	storage := newMockStorage()
	agg := &mockAggregator{result: okAggregation("e1", "e2")}
	svc := newTestService(storage, agg)

	events, err := svc.GetEconomicEvents(context.Background(), testQuery)
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if agg.callCount() != 1 {
		t.Errorf("aggregator called %d times, want 1", agg.callCount())
	}

	meta, _ := storage.meta.Get(context.Background(), testQuery.CacheKey())
	if meta == nil {
		t.Fatal("metadata not written")
	}
	if !meta.NextUpdate.Equal(testNow.Add(common.FreshnessEconomicEvents)) {
		t.Errorf("NextUpdate = %v, want now+TTL", meta.NextUpdate)
	}
	if meta.ErrorCount != 0 || !meta.IsActive || meta.Source != "eodhd" {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestGetEconomicEvents_FreshServesWithoutFetch(t *testing.T) {
	storage := newMockStorage()
	storage.events.UpsertEvents(context.Background(), okAggregation("e1").Events)
	storage.meta.Upsert(context.Background(), &models.CacheMetadata{
		CacheKey:   testQuery.CacheKey(),
		NextUpdate: testNow.Add(time.Hour),
		IsActive:   true,
	})

	agg := &mockAggregator{result: okAggregation("e1")}
	svc := newTestService(storage, agg)

	events, err := svc.GetEconomicEvents(context.Background(), testQuery)
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if agg.callCount() != 0 {
		t.Errorf("aggregator called %d times for a fresh key, want 0", agg.callCount())
	}
}

func TestGetEconomicEvents_StaleRefreshes(t *testing.T) {
	storage := newMockStorage()
	storage.meta.Upsert(context.Background(), &models.CacheMetadata{
		CacheKey:   testQuery.CacheKey(),
		NextUpdate: testNow.Add(-time.Minute),
		IsActive:   true,
	})

	agg := &mockAggregator{result: okAggregation("e1")}
	svc := newTestService(storage, agg)

	if _, err := svc.GetEconomicEvents(context.Background(), testQuery); err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}
	if agg.callCount() != 1 {
		t.Errorf("aggregator called %d times for a stale key, want 1", agg.callCount())
	}
}

func TestGetEconomicEvents_RefreshFailureServesStale(t *testing.T) {
	storage := newMockStorage()
	storage.events.UpsertEvents(context.Background(), okAggregation("stale1").Events)
	storage.meta.Upsert(context.Background(), &models.CacheMetadata{
		CacheKey:   testQuery.CacheKey(),
		NextUpdate: testNow.Add(-time.Minute),
		IsActive:   true,
	})

	agg := &mockAggregator{result: failedAggregation()}
	svc := newTestService(storage, agg)

	events, err := svc.GetEconomicEvents(context.Background(), testQuery)
	if err != nil {
		t.Fatalf("refresh failure must downgrade to stale serve: %v", err)
	}
	if len(events) != 1 || events[0].ID != "stale1" {
		t.Fatalf("events = %+v, want last snapshot", events)
	}

	meta, _ := storage.meta.Get(context.Background(), testQuery.CacheKey())
	if meta.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", meta.ErrorCount)
	}
}

func TestGetEconomicEvents_DisabledKeyNotRefreshed(t *testing.T) {
	storage := newMockStorage()
	storage.events.UpsertEvents(context.Background(), okAggregation("snapshot").Events)
	storage.meta.Upsert(context.Background(), &models.CacheMetadata{
		CacheKey:   testQuery.CacheKey(),
		NextUpdate: testNow.Add(-time.Hour),
		ErrorCount: common.MaxErrorCount,
		IsActive:   true,
	})

	agg := &mockAggregator{result: okAggregation("fresh")}
	svc := newTestService(storage, agg)

	events, err := svc.GetEconomicEvents(context.Background(), testQuery)
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}
	if agg.callCount() != 0 {
		t.Errorf("disabled key triggered %d refreshes, want 0", agg.callCount())
	}
	if len(events) != 1 || events[0].ID != "snapshot" {
		t.Errorf("events = %+v, want last snapshot", events)
	}
}

func TestGetEconomicEvents_ForceRevivesDisabledKey(t *testing.T) {
	storage := newMockStorage()
	storage.meta.Upsert(context.Background(), &models.CacheMetadata{
		CacheKey:   testQuery.CacheKey(),
		NextUpdate: testNow.Add(-time.Hour),
		ErrorCount: common.MaxErrorCount,
		IsActive:   true,
	})

	agg := &mockAggregator{result: okAggregation("revived")}
	svc := newTestService(storage, agg)

	forced := testQuery
	forced.Force = true

	events, err := svc.GetEconomicEvents(context.Background(), forced)
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}
	if agg.callCount() != 1 {
		t.Errorf("forced read triggered %d refreshes, want 1", agg.callCount())
	}
	if len(events) != 1 || events[0].ID != "revived" {
		t.Errorf("events = %+v", events)
	}

	meta, _ := storage.meta.Get(context.Background(), testQuery.CacheKey())
	if meta.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d after successful forced refresh, want 0", meta.ErrorCount)
	}
}

func TestGetEconomicEvents_ConcurrentReadersShareOneRefresh(t *testing.T) {
	storage := newMockStorage()
	agg := &mockAggregator{result: okAggregation("e1"), block: make(chan struct{})}
	svc := newTestService(storage, agg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.GetEconomicEvents(context.Background(), testQuery)
		}()
	}

	// Let the goroutines pile up on the in-flight refresh, then release it
	time.Sleep(50 * time.Millisecond)
	close(agg.block)
	wg.Wait()

	if got := agg.callCount(); got != 1 {
		t.Errorf("aggregator called %d times, want 1 shared refresh", got)
	}
}

func TestRefresh_AllProvidersFailedReturnsError(t *testing.T) {
	storage := newMockStorage()
	agg := &mockAggregator{result: failedAggregation()}
	svc := newTestService(storage, agg)

	if _, err := svc.Refresh(context.Background(), testQuery); err == nil {
		t.Fatal("expected error when every provider failed")
	}

	meta, _ := storage.meta.Get(context.Background(), testQuery.CacheKey())
	if meta == nil || meta.ErrorCount != 1 {
		t.Errorf("metadata = %+v, want error recorded", meta)
	}
}

func TestRefresh_RepeatedFailuresDisableKey(t *testing.T) {
	storage := newMockStorage()
	agg := &mockAggregator{result: failedAggregation()}
	svc := newTestService(storage, agg)

	for i := 0; i < common.MaxErrorCount; i++ {
		svc.Refresh(context.Background(), testQuery)
	}

	meta, _ := storage.meta.Get(context.Background(), testQuery.CacheKey())
	if !meta.Disabled(common.MaxErrorCount) {
		t.Errorf("metadata = %+v, want disabled after %d failures", meta, common.MaxErrorCount)
	}
}

func TestGetEconomicEvents_ReadOnlySkipsWrites(t *testing.T) {
	storage := newMockStorage()
	agg := &mockAggregator{result: okAggregation("e1")}
	svc := newTestService(storage, agg, WithReadOnly(true))

	if _, err := svc.GetEconomicEvents(context.Background(), testQuery); err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}

	if storage.events.upserts != 0 {
		t.Errorf("events written %d times in read-only mode", storage.events.upserts)
	}
	if meta, _ := storage.meta.Get(context.Background(), testQuery.CacheKey()); meta != nil {
		t.Errorf("metadata written in read-only mode: %+v", meta)
	}
}

func TestCleanup(t *testing.T) {
	storage := newMockStorage()
	storage.events.UpsertEvents(context.Background(), []models.EconomicEvent{
		{ID: "old", Date: "2025-01-01"},
		{ID: "recent", Date: "2026-03-01"},
	})

	svc := newTestService(storage, &mockAggregator{result: okAggregation()})

	removed, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := storage.events.events["recent"]; !ok {
		t.Error("recent event removed by cleanup")
	}
}
