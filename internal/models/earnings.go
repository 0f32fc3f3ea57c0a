package models

// Market session qualifiers for an earnings release.
const (
	BeforeMarket      = "before-market"
	AfterMarket       = "after-market"
	MarketUnspecified = "unspecified"
)

// EarningsReport is one company's earnings calendar entry. Identity is
// (code, report_date); refetches overwrite the window rather than merging.
type EarningsReport struct {
	Code              string   `json:"code" db:"code"`
	ReportDate        string   `json:"report_date" db:"report_date"` // YYYY-MM-DD
	FiscalDate        string   `json:"date" db:"fiscal_date"`        // fiscal period end
	BeforeAfterMarket string   `json:"before_after_market" db:"before_after_market"`
	Actual            *float64 `json:"actual" db:"actual"`
	Estimate          *float64 `json:"estimate" db:"estimate"`
	Percent           *float64 `json:"percent" db:"surprise_percent"` // surprise %
	Currency          string   `json:"currency" db:"currency"`
}

// SurprisePercent computes the earnings surprise when both figures are
// present and the provider did not supply one.
func (r *EarningsReport) SurprisePercent() *float64 {
	if r.Percent != nil {
		return r.Percent
	}
	if r.Actual == nil || r.Estimate == nil || *r.Estimate == 0 {
		return nil
	}
	pct := (*r.Actual - *r.Estimate) / *r.Estimate * 100
	return &pct
}
