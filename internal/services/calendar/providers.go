package calendar

import (
	"context"
	"time"

	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
	"github.com/seanmcgrath/macrocal/internal/normalize"
)

// Provider adapters: each wraps one client and its normalizer mapping so the
// aggregator only sees canonical events. A nil client is simply not
// registered — the aggregator never depends on any one provider existing.

func queryWindow(q models.EventQuery, now time.Time) (time.Time, time.Time) {
	from, errFrom := time.Parse("2006-01-02", q.From)
	to, errTo := time.Parse("2006-01-02", q.To)
	if errFrom != nil {
		from = now
	}
	if errTo != nil {
		to = now.AddDate(0, 0, 30)
	}
	return from, to
}

// EODHDProvider adapts the EODHD client for the aggregator.
type EODHDProvider struct {
	client interfaces.EODHDClient
	now    func() time.Time
}

// NewEODHDProvider wraps an EODHD client.
func NewEODHDProvider(client interfaces.EODHDClient) *EODHDProvider {
	return &EODHDProvider{client: client, now: time.Now}
}

func (p *EODHDProvider) Name() string { return normalize.SourceEODHD }

func (p *EODHDProvider) FetchEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error) {
	now := p.now()
	from, to := queryWindow(q, now)

	opts := []interfaces.CalendarOption{interfaces.WithDateRange(from, to)}
	if q.Country != "" {
		opts = append(opts, interfaces.WithCountry(q.Country))
	}

	raw, err := p.client.GetEconomicEvents(ctx, opts...)
	if err != nil {
		return nil, err
	}

	events := make([]models.EconomicEvent, 0, len(raw))
	for _, r := range raw {
		events = append(events, normalize.FromEODHD(r, now))
	}
	return events, nil
}

// FinnhubProvider adapts the Finnhub client for the aggregator.
type FinnhubProvider struct {
	client interfaces.FinnhubClient
	now    func() time.Time
}

// NewFinnhubProvider wraps a Finnhub client.
func NewFinnhubProvider(client interfaces.FinnhubClient) *FinnhubProvider {
	return &FinnhubProvider{client: client, now: time.Now}
}

func (p *FinnhubProvider) Name() string { return normalize.SourceFinnhub }

func (p *FinnhubProvider) FetchEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error) {
	now := p.now()
	from, to := queryWindow(q, now)

	raw, err := p.client.GetEconomicEvents(ctx, interfaces.WithDateRange(from, to))
	if err != nil {
		return nil, err
	}

	events := make([]models.EconomicEvent, 0, len(raw))
	for _, r := range raw {
		ev := normalize.FromFinnhub(r, now)
		// Finnhub has no server-side country filter
		if q.Country != "" && ev.Country != normalize.CountryName(q.Country) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// FREDProvider adapts the FRED client for the aggregator.
type FREDProvider struct {
	client interfaces.FREDClient
	now    func() time.Time
}

// NewFREDProvider wraps a FRED client.
func NewFREDProvider(client interfaces.FREDClient) *FREDProvider {
	return &FREDProvider{client: client, now: time.Now}
}

func (p *FREDProvider) Name() string { return normalize.SourceFRED }

func (p *FREDProvider) FetchEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error) {
	// FRED is US-only; skip entirely when another country is requested.
	if q.Country != "" && q.Country != "US" {
		return nil, nil
	}

	now := p.now()
	from, to := queryWindow(q, now)

	raw, err := p.client.GetReleaseDates(ctx, interfaces.WithDateRange(from, to))
	if err != nil {
		return nil, err
	}

	events := make([]models.EconomicEvent, 0, len(raw))
	for _, r := range raw {
		events = append(events, normalize.FromFRED(r, now))
	}
	return events, nil
}

// TradingEconomicsProvider adapts the Trading Economics client for the aggregator.
type TradingEconomicsProvider struct {
	client interfaces.TradingEconomicsClient
	now    func() time.Time
}

// NewTradingEconomicsProvider wraps a Trading Economics client.
func NewTradingEconomicsProvider(client interfaces.TradingEconomicsClient) *TradingEconomicsProvider {
	return &TradingEconomicsProvider{client: client, now: time.Now}
}

func (p *TradingEconomicsProvider) Name() string { return normalize.SourceTradingEconomics }

func (p *TradingEconomicsProvider) FetchEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error) {
	now := p.now()
	from, to := queryWindow(q, now)

	opts := []interfaces.CalendarOption{interfaces.WithDateRange(from, to)}
	if q.Country != "" {
		opts = append(opts, interfaces.WithCountry(q.Country))
	}

	raw, err := p.client.GetCalendar(ctx, opts...)
	if err != nil {
		return nil, err
	}

	events := make([]models.EconomicEvent, 0, len(raw))
	for _, r := range raw {
		events = append(events, normalize.FromTradingEconomics(r, now))
	}
	return events, nil
}

var (
	_ interfaces.EventProvider = (*EODHDProvider)(nil)
	_ interfaces.EventProvider = (*FinnhubProvider)(nil)
	_ interfaces.EventProvider = (*FREDProvider)(nil)
	_ interfaces.EventProvider = (*TradingEconomicsProvider)(nil)
)
