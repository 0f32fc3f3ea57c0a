package calendar

import (
	"context"
	"fmt"
	"testing"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// --- mock provider ---

type mockProvider struct {
	name   string
	events []models.EconomicEvent
	err    error
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) FetchEvents(_ context.Context, _ models.EventQuery) ([]models.EconomicEvent, error) {
	return m.events, m.err
}

func event(id, date, clock string) models.EconomicEvent {
	return models.EconomicEvent{ID: id, Date: date, Time: clock}
}

// --- tests ---

func TestGetEconomicEvents_MergesAndSorts(t *testing.T) {
	svc := NewService(common.NewSilentLogger(),
		&mockProvider{name: "a", events: []models.EconomicEvent{
			event("a2", "2026-03-14", "10:00"),
			event("a1", "2026-03-12", "08:30"),
		}},
		&mockProvider{name: "b", events: []models.EconomicEvent{
			event("b1", "2026-03-12", "09:00"),
			event("b2", "2026-03-13", ""),
		}},
	)

	agg, err := svc.GetEconomicEvents(context.Background(), models.EventQuery{})
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}

	wantOrder := []string{"a1", "b1", "b2", "a2"}
	if len(agg.Events) != len(wantOrder) {
		t.Fatalf("got %d events, want %d", len(agg.Events), len(wantOrder))
	}
	for i, id := range wantOrder {
		if agg.Events[i].ID != id {
			t.Errorf("events[%d].ID = %q, want %q", i, agg.Events[i].ID, id)
		}
	}
}

func TestGetEconomicEvents_PartialFailure(t *testing.T) {
	svc := NewService(common.NewSilentLogger(),
		&mockProvider{name: "healthy", events: []models.EconomicEvent{event("e1", "2026-03-12", "")}},
		&mockProvider{name: "down", err: fmt.Errorf("connection refused")},
	)

	agg, err := svc.GetEconomicEvents(context.Background(), models.EventQuery{})
	if err != nil {
		t.Fatalf("partial failure must not abort aggregation: %v", err)
	}

	if len(agg.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(agg.Events))
	}
	if agg.AllFailed() {
		t.Error("AllFailed = true with one healthy provider")
	}

	var downResult *models.ProviderResult
	for i := range agg.Providers {
		if agg.Providers[i].Provider == "down" {
			downResult = &agg.Providers[i]
		}
	}
	if downResult == nil || downResult.Error == "" {
		t.Fatalf("failing provider result missing: %+v", agg.Providers)
	}
}

func TestGetEconomicEvents_AllProvidersFailed(t *testing.T) {
	svc := NewService(common.NewSilentLogger(),
		&mockProvider{name: "a", err: fmt.Errorf("down")},
		&mockProvider{name: "b", err: fmt.Errorf("down")},
	)

	agg, err := svc.GetEconomicEvents(context.Background(), models.EventQuery{})
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}
	if !agg.AllFailed() {
		t.Error("AllFailed = false with every provider down")
	}
}

func TestGetEconomicEvents_RateLimitFlagged(t *testing.T) {
	svc := NewService(common.NewSilentLogger(),
		&mockProvider{name: "limited", err: &common.RateLimitError{Provider: "limited"}},
	)

	agg, _ := svc.GetEconomicEvents(context.Background(), models.EventQuery{})

	if len(agg.Providers) != 1 || !agg.Providers[0].RateLimited {
		t.Errorf("rate-limited provider not flagged: %+v", agg.Providers)
	}
}

func TestNewService_SkipsNilProviders(t *testing.T) {
	svc := NewService(common.NewSilentLogger(), nil, &mockProvider{name: "only"})
	if len(svc.providers) != 1 {
		t.Errorf("providers = %d, want 1", len(svc.providers))
	}
}
