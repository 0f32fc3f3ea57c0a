package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/seanmcgrath/macrocal/internal/models"
)

// One mapping function per provider shape. Each is total: malformed fields
// are repaired to safe defaults rather than discarding the record.

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", *f), "0"), ".")
}

// FromEODHD maps an EODHD economic event into canonical form.
func FromEODHD(raw models.EODHDEvent, now time.Time) models.EconomicEvent {
	title := raw.Type
	if raw.Period != "" {
		title = fmt.Sprintf("%s (%s)", raw.Type, raw.Period)
	}

	date, clock, defaulted := ValidDate(raw.Date, now)

	return models.EconomicEvent{
		ID:            models.EventID(SourceEODHD, raw.Date, raw.Type+"|"+raw.Country+"|"+raw.Period),
		Title:         title,
		Description:   raw.Comparison,
		Category:      ClassifyCategory(raw.Type),
		Country:       CountryName(raw.Country),
		Currency:      CurrencyFor(raw.Country),
		Importance:    ClassifyImportance(raw.Type),
		Date:          date,
		Time:          clock,
		Actual:        deref(raw.Actual),
		Forecast:      deref(raw.Estimate),
		Previous:      deref(raw.Previous),
		Source:        SourceEODHD,
		DateDefaulted: defaulted,
	}
}

// FromFinnhub maps a Finnhub economic event into canonical form.
// Finnhub supplies its own impact level; it is trusted when recognized and
// falls back to keyword classification otherwise.
func FromFinnhub(raw models.FinnhubEvent, now time.Time) models.EconomicEvent {
	date, clock, defaulted := ValidDate(raw.Time, now)

	importance := ClassifyImportance(raw.Event)
	switch strings.ToLower(raw.Impact) {
	case "high":
		importance = models.ImportanceHigh
	case "medium":
		importance = models.ImportanceMedium
	case "low":
		importance = models.ImportanceLow
	}

	description := ""
	if raw.Unit != "" {
		description = "Unit: " + raw.Unit
	}

	return models.EconomicEvent{
		ID:            models.EventID(SourceFinnhub, raw.Time, raw.Event+"|"+raw.Country),
		Title:         raw.Event,
		Description:   description,
		Category:      ClassifyCategory(raw.Event),
		Country:       CountryName(raw.Country),
		Currency:      CurrencyFor(raw.Country),
		Importance:    importance,
		Date:          date,
		Time:          clock,
		Actual:        formatFloat(raw.Actual),
		Forecast:      formatFloat(raw.Estimate),
		Previous:      formatFloat(raw.Prev),
		Source:        SourceFinnhub,
		DateDefaulted: defaulted,
	}
}

// FromFRED maps a FRED release date into canonical form. FRED reports the
// release schedule only — no actual/forecast figures.
func FromFRED(raw models.FREDReleaseDate, now time.Time) models.EconomicEvent {
	date, _, defaulted := ValidDate(raw.Date, now)

	return models.EconomicEvent{
		ID:            models.EventID(SourceFRED, raw.Date, fmt.Sprintf("%d", raw.ReleaseID)),
		Title:         raw.ReleaseName,
		Description:   "Scheduled statistical release",
		Category:      ClassifyCategory(raw.ReleaseName),
		Country:       CountryName("US"),
		Currency:      CurrencyFor("US"),
		Importance:    ClassifyImportance(raw.ReleaseName),
		Date:          date,
		Source:        SourceFRED,
		DateDefaulted: defaulted,
	}
}

// FromTradingEconomics maps a Trading Economics calendar event into
// canonical form. TE supplies a numeric importance (1..3) which is trusted;
// out-of-range values fall back to keyword classification.
func FromTradingEconomics(raw models.TEEvent, now time.Time) models.EconomicEvent {
	date, clock, defaulted := ValidDate(raw.Date, now)

	var importance models.Importance
	switch raw.Importance {
	case 3:
		importance = models.ImportanceHigh
	case 2:
		importance = models.ImportanceMedium
	case 1:
		importance = models.ImportanceLow
	default:
		importance = ClassifyImportance(raw.Event)
	}

	category := ClassifyCategory(raw.Event)
	if category == models.CategoryGeneral && raw.Category != "" {
		category = ClassifyCategory(raw.Category)
	}

	rawKey := raw.CalendarID
	if rawKey == "" {
		rawKey = raw.Event + "|" + raw.Country + "|" + raw.Reference
	}

	currency := raw.Currency
	if currency == "" {
		currency = CurrencyFor(raw.Country)
	}

	return models.EconomicEvent{
		ID:            models.EventID(SourceTradingEconomics, raw.Date, rawKey),
		Title:         raw.Event,
		Description:   raw.Reference,
		Category:      category,
		Country:       CountryName(raw.Country),
		Currency:      currency,
		Importance:    importance,
		Date:          date,
		Time:          clock,
		Actual:        raw.Actual,
		Forecast:      raw.Forecast,
		Previous:      raw.Previous,
		Source:        SourceTradingEconomics,
		DateDefaulted: defaulted,
	}
}

// EarningsFromEODHD maps an EODHD earnings entry into canonical form.
func EarningsFromEODHD(raw models.EODHDEarnings, now time.Time) models.EarningsReport {
	reportDate, _, _ := ValidDate(raw.ReportDate, now)

	session := models.MarketUnspecified
	switch strings.ToLower(strings.TrimSpace(raw.BeforeAfterMarket)) {
	case "beforemarket", "before market", "before-market", "bmo":
		session = models.BeforeMarket
	case "aftermarket", "after market", "after-market", "amc":
		session = models.AfterMarket
	}

	report := models.EarningsReport{
		Code:              raw.Code,
		ReportDate:        reportDate,
		FiscalDate:        raw.Date,
		BeforeAfterMarket: session,
		Actual:            raw.Actual,
		Estimate:          raw.Estimate,
		Percent:           raw.Percent,
		Currency:          raw.Currency,
	}
	report.Percent = report.SurprisePercent()
	return report
}

// EarningsFromFinnhub maps a Finnhub earnings entry into canonical form.
func EarningsFromFinnhub(raw models.FinnhubEarnings, now time.Time) models.EarningsReport {
	reportDate, _, _ := ValidDate(raw.Date, now)

	session := models.MarketUnspecified
	switch strings.ToLower(raw.Hour) {
	case "bmo":
		session = models.BeforeMarket
	case "amc":
		session = models.AfterMarket
	}

	report := models.EarningsReport{
		Code:              raw.Symbol,
		ReportDate:        reportDate,
		BeforeAfterMarket: session,
		Actual:            raw.EPSActual,
		Estimate:          raw.EPSEstimate,
	}
	if raw.Year > 0 && raw.Quarter > 0 {
		report.FiscalDate = fmt.Sprintf("%dQ%d", raw.Year, raw.Quarter)
	}
	report.Percent = report.SurprisePercent()
	return report
}
