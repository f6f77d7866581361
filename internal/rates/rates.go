// Package rates fetches the USDT/RUB exchange rate used for income
// attribution.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.coingecko.com"
	requestTimeout = 10 * time.Second
	cacheTTL       = 5 * time.Minute
	maxBodySize    = 1 << 16
)

// SourceLive marks a rate fetched from the provider; SourceCache marks one
// served from the TTL cache.
const (
	SourceLive  = "coingecko"
	SourceCache = "coingecko (cached)"
)

// Client fetches USDT/RUB with a short TTL cache so bursts of commands don't
// hammer the free API.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	rate      float64
	fetchedAt time.Time
	now       func() time.Time
}

// NewClient creates a rate client. baseURL is overridable for tests; empty
// means the public API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		now:     time.Now,
	}
}

// USDTRUB returns the current USDT/RUB rate and its source. err is non-nil
// only when no rate is available at all; a stale fetch error with a warm
// cache still returns the cached rate.
func (c *Client) USDTRUB(ctx context.Context) (float64, string, error) {
	c.mu.Lock()
	if c.rate > 0 && c.now().Sub(c.fetchedAt) < cacheTTL {
		rate := c.rate
		c.mu.Unlock()
		return rate, SourceCache, nil
	}
	c.mu.Unlock()

	rate, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rate > 0 {
			return c.rate, SourceCache, nil
		}
		return 0, "", err
	}

	c.mu.Lock()
	c.rate = rate
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return rate, SourceLive, nil
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := c.baseURL + "/api/v3/simple/price?ids=tether&vs_currencies=rub"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("rates: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rates: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, fmt.Errorf("rates: reading response: %w", err)
	}

	var parsed map[string]map[string]float64
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("rates: parsing response: %w", err)
	}

	rate := parsed["tether"]["rub"]
	if rate <= 0 {
		return 0, fmt.Errorf("rates: missing tether/rub in response")
	}
	return rate, nil
}
