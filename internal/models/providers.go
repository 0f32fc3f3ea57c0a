package models

// Raw provider response shapes. One explicit schema struct per provider —
// mapping into EconomicEvent happens in internal/normalize, never by
// field-sniffing a generic map.

// EODHDEvent is one entry from the EODHD /economic-events endpoint.
type EODHDEvent struct {
	Type             string  `json:"type"`
	Comparison       string  `json:"comparison"`
	Period           string  `json:"period"`
	Country          string  `json:"country"`
	Date             string  `json:"date"` // "2006-01-02 15:04:05"
	Actual           *string `json:"actual"`
	Previous         *string `json:"previous"`
	Estimate         *string `json:"estimate"`
	Change           *string `json:"change"`
	ChangePercentage *string `json:"change_percentage"`
}

// EODHDEarnings is one entry from the EODHD /calendar/earnings endpoint.
type EODHDEarnings struct {
	Code              string   `json:"code"`
	ReportDate        string   `json:"report_date"`
	Date              string   `json:"date"`
	BeforeAfterMarket string   `json:"before_after_market"`
	Currency          string   `json:"currency"`
	Actual            *float64 `json:"actual"`
	Estimate          *float64 `json:"estimate"`
	Difference        *float64 `json:"difference"`
	Percent           *float64 `json:"percent"`
}

// FinnhubEvent is one entry from the Finnhub /calendar/economic endpoint.
type FinnhubEvent struct {
	Event    string   `json:"event"`
	Country  string   `json:"country"`
	Impact   string   `json:"impact"` // "low", "medium", "high"
	Time     string   `json:"time"`   // "2006-01-02 15:04:05"
	Unit     string   `json:"unit"`
	Actual   *float64 `json:"actual"`
	Estimate *float64 `json:"estimate"`
	Prev     *float64 `json:"prev"`
}

// FinnhubEarnings is one entry from the Finnhub /calendar/earnings endpoint.
type FinnhubEarnings struct {
	Symbol      string   `json:"symbol"`
	Date        string   `json:"date"`
	Hour        string   `json:"hour"` // "bmo", "amc", ""
	Year        int      `json:"year"`
	Quarter     int      `json:"quarter"`
	EPSActual   *float64 `json:"epsActual"`
	EPSEstimate *float64 `json:"epsEstimate"`
}

// FREDReleaseDate is one entry from the FRED /releases/dates endpoint.
type FREDReleaseDate struct {
	ReleaseID   int    `json:"release_id"`
	ReleaseName string `json:"release_name"`
	Date        string `json:"date"` // "2006-01-02"
}

// TEEvent is one entry from the Trading Economics /calendar endpoint.
type TEEvent struct {
	CalendarID string `json:"CalendarId"`
	Date       string `json:"Date"` // "2006-01-02T15:04:05"
	Country    string `json:"Country"`
	Category   string `json:"Category"`
	Event      string `json:"Event"`
	Reference  string `json:"Reference"`
	Actual     string `json:"Actual"`
	Previous   string `json:"Previous"`
	Forecast   string `json:"Forecast"`
	Importance int    `json:"Importance"` // 1=low .. 3=high
	Currency   string `json:"Currency"`
}
