package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

const (
	// DefaultBaseURL is the public Polymarket data API root.
	DefaultBaseURL = "https://data-api.polymarket.com"

	tradesEndpoint   = "/trades"
	activityEndpoint = "/activity"

	DefaultTradeLimit = 1000
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 1
	DefaultBackoff    = 2 * time.Second
)

// Record-list keys per endpoint. The same keys double as wrapper-object
// keys for the nested response shapes.
var (
	tradeRecordKeys    = []string{"data", "trades", "records"}
	activityRecordKeys = []string{"data", "activity", "activities", "results"}
)

// APIError represents a non-2xx response from the data API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polymarket/data: %s responded with HTTP %d", e.Endpoint, e.StatusCode)
}

// Unwrap maps well-known statuses onto the shared domain sentinels so
// callers can classify with errors.Is without importing this package's
// error type.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.StatusCode >= 500:
		return domain.ErrServerFailure
	}
	return nil
}

// IsServerError reports whether the response came from a failing server.
// Server failures are retried and, on the primary endpoint, trigger the
// /activity fallback; client errors do neither.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// Client talks to the Polymarket data API for per-address trade activity.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limit      int
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient supplies a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTradeLimit sets the page size requested from the API.
func WithTradeLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithRetries sets how many times a failed request is reissued and the
// fixed delay between attempts.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a data API client with the given options applied over
// the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limit:      DefaultTradeLimit,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchResult carries the normalized trades for one address together with
// the number of HTTP calls spent producing them. The count includes
// retries and the fallback request.
type FetchResult struct {
	Trades   []domain.Trade
	APICalls int
}

// RecentTrades fetches trades for address strictly newer than sinceEpoch.
// The primary /trades endpoint is tried first; a server-side failure there
// falls back to /activity once with the same parameters. Records without a
// usable timestamp, or at or before the cutoff, are dropped before
// normalization. Output keeps API delivery order. An empty address yields
// an empty result without touching the network.
func (c *Client) RecentTrades(ctx context.Context, address string, sinceEpoch int64) (FetchResult, error) {
	var res FetchResult
	if address == "" {
		return res, nil
	}

	params := url.Values{}
	params.Set("user", address)
	params.Set("limit", strconv.Itoa(c.limit))

	keys := tradeRecordKeys
	payload, err := c.getJSON(ctx, tradesEndpoint, params, &res.APICalls)
	if err != nil {
		if !isServerFailure(err) {
			return res, fmt.Errorf("polymarket/data: fetch trades for %s: %w", address, err)
		}
		c.logger.Warn("primary /trades endpoint failed, falling back to /activity",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		keys = activityRecordKeys
		payload, err = c.getJSON(ctx, activityEndpoint, params, &res.APICalls)
		if err != nil {
			return res, fmt.Errorf("polymarket/data: activity fallback for %s: %w", address, err)
		}
	}

	for _, rec := range ExtractRecords(payload, keys) {
		ts, ok := CoerceTimestamp(rec)
		if !ok || ts <= sinceEpoch {
			continue
		}
		res.Trades = append(res.Trades, NormalizeTrade(rec, address, ts))
	}
	return res, nil
}

// getJSON issues a GET with fixed-delay retries and decodes the body.
// Only server failures are retried; client errors and malformed bodies
// fail immediately.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, calls *int) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying data api request",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", c.backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		payload, err := c.doGet(ctx, endpoint, params, calls)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if !isServerFailure(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doGet performs a single request. calls is incremented once per completed
// HTTP round-trip, whatever the status.
func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values, calls *int) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	*calls++

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: body}
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON from %s: %w", endpoint, err)
	}
	return payload, nil
}

// isServerFailure classifies an error as a server-side failure: a 5xx
// response or a request that never completed. These are the retryable
// errors and the ones that justify the /activity fallback. Context
// cancellation, client errors and malformed bodies are not in this class.
func isServerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
