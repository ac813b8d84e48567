package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gangu/backend/internal/domain"
	"github.com/gangu/backend/internal/infrastructure/httputil"
)

const (
	maxErrorBody     = 4 << 10
	maxResponseBody  = 4 << 20
	defaultRate      = 5.0
	defaultBurst     = 5
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "Gangu/1.0"
)

// Config describes one marketplace API
type Config struct {
	Name          string
	BaseURL       string
	APIKey        string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

// Client talks to a marketplace's JSON API. It implements both
// domain.PlatformSearcher and domain.PurchaseExecutor.
type Client struct {
	name        string
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new marketplace client
func NewClient(cfg Config) *Client {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		name: strings.ToLower(strings.TrimSpace(cfg.Name)),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name returns the platform name
func (c *Client) Name() string {
	return c.name
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[PLATFORM] "+format, args...)
	}
}

// Search queries GET {base}/search?q=&quantity=&category=.
// A 404 means the platform has nothing for the query.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawListing, error) {
	params := url.Values{}
	params.Set("q", query.Item)
	if query.Quantity != "" {
		params.Set("quantity", query.Quantity)
	}
	if query.Category != "" {
		params.Set("category", query.Category)
	}

	status, body, err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		c.debugLog("%s: nothing found for %q", c.name, query.Item)
		return []domain.RawListing{}, nil
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: %s search returned status %d: %s", domain.ErrPlatformFailure, c.name, status, body)
	}

	items, err := decodeSearchResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to decode response: %v", domain.ErrPlatformFailure, c.name, err)
	}

	listings := MapListings(c.name, items)
	c.debugLog("%s: %d listings for %q", c.name, len(listings), query.Item)
	return listings, nil
}

// PlaceOrder posts the order to POST {base}/orders with an Idempotency-Key header
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/orders", payload, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: %s already has this order", domain.ErrDuplicateOrder, c.name)
	default:
		return nil, fmt.Errorf("%w: %s order returned status %d: %s", domain.ErrPlatformFailure, c.name, status, body)
	}

	var confirmation domain.OrderConfirmation
	if err := json.Unmarshal(body, &confirmation); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to decode order confirmation: %v", domain.ErrPlatformFailure, c.name, err)
	}
	if confirmation.OrderID == "" {
		return nil, fmt.Errorf("%w: %s returned no order id", domain.ErrPlatformFailure, c.name)
	}
	if confirmation.Platform == "" {
		confirmation.Platform = c.name
	}

	log.Printf("[PLATFORM] %s accepted order %s", c.name, confirmation.OrderID)
	return &confirmation, nil
}

// do waits for the rate limiter, sends the request with 429/503 retries and
// returns the status and (size-limited) body.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotencyKey string) (int, []byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter error: %w", err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	c.debugLog("%s %s", method, req.URL.Redacted())

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %s: %v", domain.ErrPlatformFailure, c.name, err)
	}
	defer resp.Body.Close()

	limit := int64(maxResponseBody)
	if resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	data, err := readLimitedBody(resp.Body, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s: failed to read body: %v", domain.ErrPlatformFailure, c.name, err)
	}

	return resp.StatusCode, data, nil
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
