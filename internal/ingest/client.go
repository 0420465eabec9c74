// Package ingest talks to the external odds and results APIs. Transport is
// plain JSON-over-HTTP behind a shared rate limiter; everything returned is
// normalized into sports.Match / sports.Result with canonical team keys.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/charleschow/edgeline/internal/telemetry"
)

// Client is the rate-limited HTTP base both API clients share.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, apiKey string, timeout time.Duration, reqPerSec float64) *Client {
	if reqPerSec <= 0 {
		reqPerSec = 2
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(reqPerSec), int(reqPerSec)+1),
	}
}

// get performs one GET with the api key merged into the query string.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.apiKey)

	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	elapsed := time.Since(start)
	telemetry.Metrics.OddsFetchLatency.Record(elapsed)
	telemetry.Debugf("ingest: GET %s -> %d (%s)", path, resp.StatusCode, elapsed)

	switch resp.StatusCode {
	case http.StatusOK:
		return body, resp.StatusCode, nil
	case http.StatusUnauthorized:
		return nil, resp.StatusCode, fmt.Errorf("GET %s: invalid api key", path)
	case http.StatusTooManyRequests:
		return nil, resp.StatusCode, fmt.Errorf("GET %s: api quota exhausted", path)
	default:
		return nil, resp.StatusCode, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
}
