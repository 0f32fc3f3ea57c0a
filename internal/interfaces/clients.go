// Package interfaces defines service contracts for macrocal
package interfaces

import (
	"context"
	"time"

	"github.com/seanmcgrath/macrocal/internal/models"
)

// EODHDClient provides access to the EODHD API
type EODHDClient interface {
	// GetEconomicEvents retrieves raw economic calendar events
	GetEconomicEvents(ctx context.Context, opts ...CalendarOption) ([]models.EODHDEvent, error)

	// GetEarnings retrieves the earnings calendar for a date window
	GetEarnings(ctx context.Context, from, to time.Time) ([]models.EODHDEarnings, error)
}

// FinnhubClient provides access to the Finnhub API
type FinnhubClient interface {
	// GetEconomicEvents retrieves raw economic calendar events
	GetEconomicEvents(ctx context.Context, opts ...CalendarOption) ([]models.FinnhubEvent, error)

	// GetEarnings retrieves the earnings calendar for a date window
	GetEarnings(ctx context.Context, from, to time.Time) ([]models.FinnhubEarnings, error)
}

// FREDClient provides access to the FRED API
type FREDClient interface {
	// GetReleaseDates retrieves scheduled statistical release dates
	GetReleaseDates(ctx context.Context, opts ...CalendarOption) ([]models.FREDReleaseDate, error)
}

// TradingEconomicsClient provides access to the Trading Economics API
type TradingEconomicsClient interface {
	// GetCalendar retrieves raw calendar events
	GetCalendar(ctx context.Context, opts ...CalendarOption) ([]models.TEEvent, error)
}

// CalendarOption configures calendar data requests
type CalendarOption func(*CalendarParams)

// CalendarParams holds calendar query parameters
type CalendarParams struct {
	From    time.Time
	To      time.Time
	Country string
	Limit   int
}

// WithDateRange sets the date range for a calendar query
func WithDateRange(from, to time.Time) CalendarOption {
	return func(p *CalendarParams) {
		p.From = from
		p.To = to
	}
}

// WithCountry restricts a calendar query to one country code
func WithCountry(country string) CalendarOption {
	return func(p *CalendarParams) {
		p.Country = country
	}
}

// WithLimit sets the maximum number of records returned
func WithLimit(limit int) CalendarOption {
	return func(p *CalendarParams) {
		p.Limit = limit
	}
}

// EventProvider is one normalized event source as seen by the aggregator.
// Implementations wrap a provider client plus its normalizer mapping; a
// failing provider contributes zero events, never a fatal aggregation error.
type EventProvider interface {
	// Name identifies the provider in logs and event Source fields
	Name() string

	// FetchEvents retrieves canonical events for a query shape
	FetchEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error)
}
