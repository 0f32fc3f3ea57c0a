// Package fred provides a client for the FRED (Federal Reserve Economic Data) API
package fred

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
	DefaultBaseURL   = "https://api.stlouisfed.org/fred"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the FREDClient interface
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

// NewClient creates a new FRED client
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
	return fmt.Sprintf("FRED API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request with request-level caching
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}

	cacheKey := path + "?" + params.Encode()
	if body, ok := c.cache.Get(ctx, cacheKey); ok {
		c.logger.Debug().Str("endpoint", path).Msg("FRED response cache hit")
		return json.Unmarshal(body, result)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("FRED API request")

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
		return &common.RateLimitError{Provider: "fred", RetryAfter: retryAfter}
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

// releaseDatesResponse wraps the FRED release dates payload
type releaseDatesResponse struct {
	ReleaseDates []models.FREDReleaseDate `json:"release_dates"`
}

// GetReleaseDates retrieves scheduled statistical release dates.
// FRED covers US data only; the Country option is ignored.
// Non-2xx responses other than rate limiting degrade to an empty result.
func (c *Client) GetReleaseDates(ctx context.Context, opts ...interfaces.CalendarOption) ([]models.FREDReleaseDate, error) {
	params := &interfaces.CalendarParams{}
	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("include_release_dates_with_no_data", "true")
	if !params.From.IsZero() {
		urlParams.Set("realtime_start", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("realtime_end", params.To.Format("2006-01-02"))
	}
	if params.Limit > 0 {
		urlParams.Set("limit", strconv.Itoa(params.Limit))
	}

	var resp releaseDatesResponse
	if err := c.get(ctx, "/releases/dates", urlParams, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Msg("FRED release dates unavailable")
			return []models.FREDReleaseDate{}, nil
		}
		return nil, err
	}

	return resp.ReleaseDates, nil
}

// Ensure Client implements FREDClient
var _ interfaces.FREDClient = (*Client)(nil)
