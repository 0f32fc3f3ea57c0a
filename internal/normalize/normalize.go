// Package normalize maps raw provider shapes into canonical economic events.
// Every function here is pure and total: any input produces a valid output.
package normalize

import (
	"strings"
	"time"

	"github.com/seanmcgrath/macrocal/internal/models"
)

// Provider source identifiers as recorded on canonical events.
const (
	SourceEODHD            = "eodhd"
	SourceFinnhub          = "finnhub"
	SourceFRED             = "fred"
	SourceTradingEconomics = "tradingeconomics"
)

// highImportance marks headline indicators that move markets.
var highImportance = []string{
	"cpi", "consumer price",
	"nonfarm", "non-farm", "nfp", "payroll",
	"gdp", "gross domestic",
	"fomc", "fed funds", "federal funds", "interest rate decision", "rate decision",
	"ppi", "producer price",
	"retail sales",
	"case-shiller", "case shiller",
	"jolts",
	"jobless claims", "unemployment rate",
}

// mediumImportance marks secondary indicators.
var mediumImportance = []string{
	"industrial production",
	"housing starts", "building permits",
	"consumer confidence", "consumer sentiment",
	"durable goods",
	"trade balance",
	"pmi", "ism",
	"existing home", "new home",
	"personal income", "personal spending",
}

// ClassifyImportance derives an importance level from an indicator name.
// Unrecognized names default to medium so classification stays total.
func ClassifyImportance(title string) models.Importance {
	t := strings.ToLower(title)
	for _, kw := range highImportance {
		if strings.Contains(t, kw) {
			return models.ImportanceHigh
		}
	}
	for _, kw := range mediumImportance {
		if strings.Contains(t, kw) {
			return models.ImportanceMedium
		}
	}
	return models.ImportanceMedium
}

// categoryKeywords is checked in order; first match wins.
var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryInflation, []string{"cpi", "ppi", "inflation", "price index", "consumer price", "producer price", "deflator"}},
	{models.CategoryEmployment, []string{"payroll", "nonfarm", "non-farm", "employment", "unemployment", "jobless", "jolts", "labor", "labour", "jobs"}},
	{models.CategoryMonetaryPolicy, []string{"fomc", "fed ", "federal reserve", "interest rate", "rate decision", "central bank", "monetary", "minutes"}},
	{models.CategoryHousing, []string{"housing", "home sales", "home price", "building permit", "case-shiller", "case shiller", "mortgage", "construction"}},
	{models.CategoryManufacturing, []string{"manufacturing", "industrial production", "pmi", "ism", "durable goods", "factory orders"}},
	{models.CategoryConsumption, []string{"retail sales", "personal income", "personal spending", "consumer spending", "consumer credit"}},
	{models.CategoryTrade, []string{"trade balance", "export", "import", "current account"}},
	{models.CategorySentiment, []string{"confidence", "sentiment", "expectations", "optimism"}},
	{models.CategoryGrowth, []string{"gdp", "gross domestic", "growth", "economic activity"}},
}

// ClassifyCategory maps an indicator name onto the fixed taxonomy,
// defaulting to general.
func ClassifyCategory(title string) models.Category {
	t := strings.ToLower(title)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(t, kw) {
				return entry.category
			}
		}
	}
	return models.CategoryGeneral
}

// countryInfo is the country code translation table. Unknown codes pass
// through unchanged rather than failing.
var countryInfo = map[string]struct {
	name     string
	currency string
}{
	"US": {"United States", "USD"},
	"GB": {"United Kingdom", "GBP"},
	"UK": {"United Kingdom", "GBP"},
	"EU": {"Euro Area", "EUR"},
	"DE": {"Germany", "EUR"},
	"FR": {"France", "EUR"},
	"IT": {"Italy", "EUR"},
	"ES": {"Spain", "EUR"},
	"JP": {"Japan", "JPY"},
	"CN": {"China", "CNY"},
	"AU": {"Australia", "AUD"},
	"NZ": {"New Zealand", "NZD"},
	"CA": {"Canada", "CAD"},
	"CH": {"Switzerland", "CHF"},
	"IN": {"India", "INR"},
	"BR": {"Brazil", "BRL"},
	"MX": {"Mexico", "MXN"},
	"KR": {"South Korea", "KRW"},
	"RU": {"Russia", "RUB"},
	"ZA": {"South Africa", "ZAR"},
}

// CountryName returns the display name for a provider country code.
func CountryName(code string) string {
	if info, ok := countryInfo[strings.ToUpper(code)]; ok {
		return info.name
	}
	return code
}

// CurrencyFor returns the ISO currency code for a provider country code,
// or empty when unknown.
func CurrencyFor(code string) string {
	if info, ok := countryInfo[strings.ToUpper(code)]; ok {
		return info.currency
	}
	return ""
}

// dateLayouts covers the date formats the providers emit.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ValidDate parses a raw provider date into (YYYY-MM-DD, HH:MM). When the
// date cannot be parsed the current date is substituted and defaulted=true
// is returned, so downstream consumers can distinguish a real event dated
// today from a repaired parse failure.
func ValidDate(raw string, now time.Time) (date string, clock string, defaulted bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		date = t.Format("2006-01-02")
		if layout != "2006-01-02" && !(t.Hour() == 0 && t.Minute() == 0) {
			clock = t.Format("15:04")
		}
		return date, clock, false
	}
	return now.Format("2006-01-02"), "", true
}
