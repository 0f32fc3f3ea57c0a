// Package eodhd provides a client for the EODHD API
package eodhd

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
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the EODHDClient interface
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

// NewClient creates a new EODHD client
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
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request with request-level caching
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}

	cacheKey := path + "?" + params.Encode()
	if body, ok := c.cache.Get(ctx, cacheKey); ok {
		c.logger.Debug().Str("endpoint", path).Msg("EODHD response cache hit")
		return json.Unmarshal(body, result)
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &common.RateLimitError{Provider: "eodhd", RetryAfter: retryAfter(resp)}
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

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// GetEconomicEvents retrieves raw economic calendar events.
// Non-2xx responses other than rate limiting degrade to an empty result.
func (c *Client) GetEconomicEvents(ctx context.Context, opts ...interfaces.CalendarOption) ([]models.EODHDEvent, error) {
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
	if params.Country != "" {
		urlParams.Set("country", params.Country)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 1000
	}
	urlParams.Set("limit", strconv.Itoa(limit))

	var events []models.EODHDEvent
	if err := c.get(ctx, "/economic-events", urlParams, &events); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Msg("EODHD economic events unavailable")
			return []models.EODHDEvent{}, nil
		}
		return nil, err
	}

	return events, nil
}

// earningsResponse wraps the EODHD earnings calendar payload
type earningsResponse struct {
	Earnings []models.EODHDEarnings `json:"earnings"`
}

// GetEarnings retrieves the earnings calendar for a date window
func (c *Client) GetEarnings(ctx context.Context, from, to time.Time) ([]models.EODHDEarnings, error) {
	urlParams := url.Values{}
	urlParams.Set("from", from.Format("2006-01-02"))
	urlParams.Set("to", to.Format("2006-01-02"))

	var resp earningsResponse
	if err := c.get(ctx, "/calendar/earnings", urlParams, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Msg("EODHD earnings calendar unavailable")
			return []models.EODHDEarnings{}, nil
		}
		return nil, err
	}

	return resp.Earnings, nil
}

// Ensure Client implements EODHDClient
var _ interfaces.EODHDClient = (*Client)(nil)
