// Package models defines the data structures for macrocal
package models

import (
	"fmt"
	"hash/fnv"
)

// Importance is the derived significance level of an economic event.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Category is the fixed taxonomy an event is classified into.
type Category string

const (
	CategoryInflation      Category = "inflation"
	CategoryEmployment     Category = "employment"
	CategoryGrowth         Category = "growth"
	CategoryConsumption    Category = "consumption"
	CategoryHousing        Category = "housing"
	CategoryManufacturing  Category = "manufacturing"
	CategoryMonetaryPolicy Category = "monetary-policy"
	CategoryTrade          Category = "trade"
	CategorySentiment      Category = "sentiment"
	CategoryGeneral        Category = "general"
)

// EconomicEvent is the canonical event shape all provider data is mapped into.
// Actual/Forecast/Previous keep the provider's native formatting — some feeds
// report "0.4%", some "0.4", some "N/A". They are display values, not numerics.
type EconomicEvent struct {
	ID            string     `json:"id" db:"event_id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Category      Category   `json:"category" db:"category"`
	Country       string     `json:"country" db:"country"`
	Currency      string     `json:"currency" db:"currency"`
	Importance    Importance `json:"importance" db:"importance"`
	Date          string     `json:"date" db:"event_date"` // YYYY-MM-DD, provider-local
	Time          string     `json:"time,omitempty" db:"event_time"`
	Actual        string     `json:"actual,omitempty" db:"actual"`
	Forecast      string     `json:"forecast,omitempty" db:"forecast"`
	Previous      string     `json:"previous,omitempty" db:"previous"`
	Source        string     `json:"source" db:"source"`
	DateDefaulted bool       `json:"date_defaulted,omitempty" db:"date_defaulted"`
}

// EventID derives a stable identifier from the source, the raw date string,
// and a raw provider key so repeated fetches of the same underlying event
// upsert rather than duplicate.
func EventID(source, rawDate, rawKey string) string {
	h := fnv.New64a()
	h.Write([]byte(rawDate))
	h.Write([]byte{0})
	h.Write([]byte(rawKey))
	return fmt.Sprintf("%s-%016x", source, h.Sum64())
}

// EventQuery identifies one distinct query shape for staleness tracking.
type EventQuery struct {
	Country    string // empty = all countries
	Importance string // empty = all levels
	From       string // YYYY-MM-DD inclusive
	To         string // YYYY-MM-DD inclusive
	Force      bool   // bypass cache freshness
}

// CacheKey returns the deterministic composite key for this query shape.
// Force is deliberately excluded — it affects behavior, not identity.
func (q EventQuery) CacheKey() string {
	country := q.Country
	if country == "" {
		country = "all"
	}
	importance := q.Importance
	if importance == "" {
		importance = "all"
	}
	return fmt.Sprintf("%s_%s_%s_%s", country, importance, q.From, q.To)
}

// ProviderResult captures one provider's contribution to an aggregation.
type ProviderResult struct {
	Provider    string `json:"provider"`
	Events      int    `json:"events"`
	Err         error  `json:"-"`
	Error       string `json:"error,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// AggregationResult is the gathered output of a provider fan-out.
type AggregationResult struct {
	Events    []EconomicEvent  `json:"events"`
	Providers []ProviderResult `json:"providers"`
}

// AllFailed reports whether no provider contributed any events and at least
// one failed — the distinction between "all providers down" and "a genuinely
// quiet calendar window".
func (r *AggregationResult) AllFailed() bool {
	if len(r.Events) > 0 {
		return false
	}
	failed := 0
	for _, p := range r.Providers {
		if p.Err != nil {
			failed++
		}
	}
	return failed > 0 && failed == len(r.Providers)
}
