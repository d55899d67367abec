package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spiritlens/backend/internal/domain"
)

const (
	maxAttempts = 3
	maxPages    = 10000 // hard stop for an upstream that never reports the end
)

// Config holds upstream catalog settings
type Config struct {
	BaseURL           string
	APIKey            string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client pages spirit records from the upstream catalog API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	pageSize    int
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
}

// NewClient creates a new catalog API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100 // Default 100 records per page
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5 // Default 5 requests/sec
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:    pageSize,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		backoff:     linearBackoff,
		logger:      logger,
	}
}

// linearBackoff waits 500ms, 1s, 1.5s...
func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt*500) * time.Millisecond
}

// FetchRecords pages through /v1/spirits until a 404, an empty page, or a
// page that says there is nothing more
func (c *Client) FetchRecords(ctx context.Context) ([]domain.Record, error) {
	var records []domain.Record
	for page := 1; page <= maxPages; page++ {
		resp, err := c.fetchPage(ctx, page)
		if errors.Is(err, errEndOfPages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if len(resp.Spirits) == 0 {
			break
		}

		for i := range resp.Spirits {
			rec, err := MapToRecord(&resp.Spirits[i])
			if err != nil {
				c.logger.Warn("upstream field dropped",
					zap.Int("page", page),
					zap.String("id", rec.ID),
					zap.Error(err),
				)
			}
			records = append(records, rec)
		}
		c.logger.Debug("catalog page fetched", zap.Int("page", page), zap.Int("records", len(resp.Spirits)))

		if resp.HasMore != nil && !*resp.HasMore {
			break
		}
	}

	c.logger.Info("catalog fetch complete", zap.Int("records", len(records)))
	return records, nil
}

var errEndOfPages = errors.New("end of pages")

// fetchPage requests one page, retrying transient failures (5xx, 429 and
// transport errors). A 404 ends pagination; other 4xx fail at once.
func (c *Client) fetchPage(ctx context.Context, page int) (*pageResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(c.pageSize))
	reqURL := fmt.Sprintf("%s/v1/spirits?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, status, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("catalog request failed", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusOK:
			var resp pageResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrCatalogAPIFailure, err)
			}
			return &resp, nil
		case status == http.StatusNotFound:
			return nil, errEndOfPages
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: upstream answered 429", domain.ErrRateLimited)
		case status >= 500:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogAPIFailure, status)
		default:
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrCatalogAPIFailure, status, truncate(body, 200))
		}
		c.logger.Warn("catalog request retrying",
			zap.Int("attempt", attempt),
			zap.Int("status", status),
		)
	}
	return nil, lastErr
}

// doRequest executes a GET with the API key header
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "SpiritLens/1.0")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrCatalogAPIFailure, err)
	}
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
