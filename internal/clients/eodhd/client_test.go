package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
)

func TestGetEconomicEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/economic-events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("api_token") != "test-key" {
			t.Error("api_token not set")
		}
		if r.URL.Query().Get("country") != "US" {
			t.Errorf("country = %q", r.URL.Query().Get("country"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"type": "CPI YoY", "period": "Feb", "country": "US", "date": "2026-03-12 08:30:00", "actual": "3.1%", "estimate": "3.0%"},
			{"type": "Retail Sales", "country": "US", "date": "2026-03-14 08:30:00"}
		]`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	events, err := client.GetEconomicEvents(context.Background(),
		interfaces.WithDateRange(from, to), interfaces.WithCountry("US"))
	if err != nil {
		t.Fatalf("GetEconomicEvents failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "CPI YoY" || events[0].Actual == nil || *events[0].Actual != "3.1%" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Actual != nil {
		t.Errorf("second event actual = %v, want nil", events[1].Actual)
	}
}

func TestGetEconomicEvents_HTTPErrorDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payment required", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	events, err := client.GetEconomicEvents(context.Background())
	if err != nil {
		t.Fatalf("expected degraded empty result, got error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestGetEconomicEvents_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GetEconomicEvents(context.Background())
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if !common.IsRateLimit(err) {
		t.Errorf("error %v is not a rate limit error", err)
	}
}

func TestGetEconomicEvents_UsesResponseCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"type": "CPI YoY", "country": "US", "date": "2026-03-12 08:30:00"}]`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		events, err := client.GetEconomicEvents(ctx)
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if len(events) != 1 {
			t.Fatalf("call %d returned %d events", i, len(events))
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream called %d times, want 1 (cached)", got)
	}
}

func TestGetEarnings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendar/earnings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"earnings": [
			{"code": "AAPL.US", "report_date": "2026-04-28", "before_after_market": "AfterMarket", "actual": 2.4, "estimate": 2.0}
		]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

	reports, err := client.GetEarnings(context.Background(), from, to)
	if err != nil {
		t.Fatalf("GetEarnings failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Code != "AAPL.US" {
		t.Fatalf("reports = %+v", reports)
	}
	if reports[0].Actual == nil || *reports[0].Actual != 2.4 {
		t.Errorf("actual = %v", reports[0].Actual)
	}
}
