// Package telemetry provides a client for the smart-plug cloud API: signed
// requests, token refresh, response caching, and rate/quota limiting.
package telemetry

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"wattmon/internal/model"
)

const (
	defaultBaseURL = "https://openapi.tuyaeu.com"
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrUnauthorized indicates the client credentials are invalid or expired.
	ErrUnauthorized = errors.New("telemetry: unauthorized (check client id and secret)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("telemetry: rate limited")
	// ErrQuotaExceeded indicates the daily request budget is spent.
	ErrQuotaExceeded = errors.New("telemetry: daily request quota exceeded")
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	ClientID          string
	ClientSecret      string
	CacheTTL          time.Duration
	MaxRequestsPerSec int
	MaxRequestsPerDay int
}

// Client fetches device status from the cloud API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
	cache        *readingCache
	limiter      *Limiter

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a client. Returns nil if credentials are missing.
func NewClient(opts Options) *Client {
	if strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.ClientSecret) == "" {
		return nil
	}
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{
		baseURL:      strings.TrimRight(base, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		http:         &http.Client{},
		cache:        newReadingCache(ttl),
		limiter:      NewLimiter(opts.MaxRequestsPerSec, opts.MaxRequestsPerDay),
	}
}

// Quota returns the daily request budget usage.
func (c *Client) Quota() QuotaStatus {
	return c.limiter.Status()
}

// Invalidate drops the cached reading for a device.
func (c *Client) Invalidate(deviceID string) {
	c.cache.invalidate(deviceID)
}

// DeviceReading returns the current reading for a device, served from cache
// when fresh enough.
func (c *Client) DeviceReading(ctx context.Context, deviceID string) (model.DeviceReading, error) {
	if r, ok := c.cache.get(deviceID); ok {
		return r, nil
	}

	body, err := c.get(ctx, "/v1.0/devices/"+deviceID+"/status")
	if err != nil {
		return model.DeviceReading{}, err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.DeviceReading{}, fmt.Errorf("telemetry: parsing status: %w", err)
	}
	if !resp.Success {
		return model.DeviceReading{}, fmt.Errorf("telemetry: status request failed: %s", resp.Msg)
	}

	reading := parseStatus(deviceID, resp.Result, time.Now())
	c.cache.put(deviceID, reading)
	return reading, nil
}

type statusResponse struct {
	Success bool        `json:"success"`
	Msg     string      `json:"msg"`
	Result  []dataPoint `json:"result"`
}

type dataPoint struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

// parseStatus normalizes raw data points into a DeviceReading. Unit fixes
// follow the plug firmware quirks: power above 100 is reported in
// deciwatts, voltage above 1000 in decivolts, current always in mA. The
// add_ele counter is preferred over switch-level counters when present, and
// a positive power draw forces is_on regardless of the switch state.
func parseStatus(deviceID string, points []dataPoint, at time.Time) model.DeviceReading {
	reading := model.DeviceReading{
		DeviceID:      deviceID,
		At:            at,
		RawAttributes: make(map[string]any, len(points)),
	}

	var addEle float64
	for _, p := range points {
		if p.Code == "" || p.Value == nil {
			continue
		}
		reading.RawAttributes[p.Code] = p.Value

		switch p.Code {
		case "switch", "switch_1":
			if on, ok := p.Value.(bool); ok {
				reading.IsOn = on
			}
		case "add_ele", "17":
			if v, ok := toFloat(p.Value); ok {
				addEle = v
			}
		case "cur_power":
			if v, ok := toFloat(p.Value); ok {
				if v > 100 {
					v /= 10
				}
				reading.PowerW = v
				reading.HasPower = true
			}
		case "cur_voltage":
			if v, ok := toFloat(p.Value); ok {
				if v > 1000 {
					v /= 10
				}
				reading.VoltageV = v
			}
		case "cur_current":
			if v, ok := toFloat(p.Value); ok {
				reading.CurrentA = v / 1000
			}
		}
	}

	if addEle > 0 {
		reading.CounterKWh = addEle
	}
	if reading.HasPower && reading.PowerW > 0 {
		reading.IsOn = true
	}
	return reading
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Result  struct {
		AccessToken string `json:"access_token"`
		ExpireTime  int    `json:"expire_time"`
	} `json:"result"`
}

// ensureToken returns a valid access token, refreshing it when missing or
// near expiry. The lock is held across the refresh so concurrent callers
// share a single token request.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := c.request(ctx, "/v1.0/token?grant_type=1", "")
	if err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("telemetry: parsing token: %w", err)
	}
	if !resp.Success || resp.Result.AccessToken == "" {
		return "", ErrUnauthorized
	}

	c.token = resp.Result.AccessToken
	// Refresh one minute early to avoid racing the expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(resp.Result.ExpireTime)*time.Second - time.Minute)
	return c.token, nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, path, token)
}

// request performs a signed GET request. The signature scheme is the cloud
// vendor's v2: HMAC-SHA256 over client id, access token, timestamp, and the
// canonical request string.
func (c *Client) request(ctx context.Context, path, token string) ([]byte, error) {
	if err := c.limiter.Acquire(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating request: %w", err)
	}

	t := strconv.FormatInt(time.Now().UnixMilli(), 10)
	emptyBodyHash := sha256.Sum256(nil)
	stringToSign := http.MethodGet + "\n" + hex.EncodeToString(emptyBodyHash[:]) + "\n\n" + path

	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(c.clientID + token + t + stringToSign))
	sign := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))

	req.Header.Set("client_id", c.clientID)
	req.Header.Set("t", t)
	req.Header.Set("sign", sign)
	req.Header.Set("sign_method", "HMAC-SHA256")
	if token != "" {
		req.Header.Set("access_token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telemetry: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("telemetry: reading response: %w", err)
	}
	return body, nil
}
