// Package finnhub provides a client for the Finnhub API
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/seanmcgrath/macrocal/internal/clients/respcache"
	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the FinnhubClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	cache      respcache.Cache
	cacheTTL   time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCache sets the request-level response cache
func WithCache(cache respcache.Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:   common.NewSilentLogger(),
		cache:    respcache.NewMemory(),
		cacheTTL: common.FreshnessProviderResponse,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request with request-level caching
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}

	cacheKey := path + "?" + params.Encode()
	if body, ok := c.cache.Get(ctx, cacheKey); ok {
		c.logger.Debug().Str("endpoint", path).Msg("Finnhub response cache hit")
		return json.Unmarshal(body, result)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Finnhub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		var retryAfter time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &common.RateLimitError{Provider: "finnhub", RetryAfter: retryAfter}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.cache.Set(ctx, cacheKey, body, c.cacheTTL)

	return json.Unmarshal(body, result)
}

// economicCalendarResponse wraps the Finnhub economic calendar payload
type economicCalendarResponse struct {
	EconomicCalendar []models.FinnhubEvent `json:"economicCalendar"`
}

// GetEconomicEvents retrieves raw economic calendar events.
// Non-2xx responses other than rate limiting degrade to an empty result.
func (c *Client) GetEconomicEvents(ctx context.Context, opts ...interfaces.CalendarOption) ([]models.FinnhubEvent, error) {
	params := &interfaces.CalendarParams{}
	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	if !params.From.IsZero() {
		urlParams.Set("from", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("to", params.To.Format("2006-01-02"))
	}

	var resp economicCalendarResponse
	if err := c.get(ctx, "/calendar/economic", urlParams, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Msg("Finnhub economic calendar unavailable")
			return []models.FinnhubEvent{}, nil
		}
		return nil, err
	}

	return resp.EconomicCalendar, nil
}

// earningsCalendarResponse wraps the Finnhub earnings calendar payload
type earningsCalendarResponse struct {
	EarningsCalendar []models.FinnhubEarnings `json:"earningsCalendar"`
}

// GetEarnings retrieves the earnings calendar for a date window
func (c *Client) GetEarnings(ctx context.Context, from, to time.Time) ([]models.FinnhubEarnings, error) {
	urlParams := url.Values{}
	urlParams.Set("from", from.Format("2006-01-02"))
	urlParams.Set("to", to.Format("2006-01-02"))

	var resp earningsCalendarResponse
	if err := c.get(ctx, "/calendar/earnings", urlParams, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Msg("Finnhub earnings calendar unavailable")
			return []models.FinnhubEarnings{}, nil
		}
		return nil, err
	}

	return resp.EarningsCalendar, nil
}

// Ensure Client implements FinnhubClient
var _ interfaces.FinnhubClient = (*Client)(nil)
