package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_UnitFixes(t *testing.T) {
	points := []dataPoint{
		{Code: "switch", Value: false},
		{Code: "cur_power", Value: 4560.0}, // deciwatts
		{Code: "cur_voltage", Value: 2310.0},
		{Code: "cur_current", Value: 1975.0}, // mA
	}
	r := parseStatus("dev1", points, time.Now())

	assert.InDelta(t, 456.0, r.PowerW, 1e-9)
	assert.True(t, r.HasPower)
	assert.InDelta(t, 231.0, r.VoltageV, 1e-9)
	assert.InDelta(t, 1.975, r.CurrentA, 1e-9)
	// Positive power overrides the reported switch state.
	assert.True(t, r.IsOn)
}

func TestParseStatus_SmallValuesKeptAsIs(t *testing.T) {
	points := []dataPoint{
		{Code: "cur_power", Value: 85.0},
		{Code: "cur_voltage", Value: 230.0},
	}
	r := parseStatus("dev1", points, time.Now())
	assert.InDelta(t, 85.0, r.PowerW, 1e-9)
	assert.InDelta(t, 230.0, r.VoltageV, 1e-9)
}

func TestParseStatus_CounterPrefersAddEle(t *testing.T) {
	r := parseStatus("dev1", []dataPoint{
		{Code: "17", Value: 123.456},
		{Code: "switch", Value: true},
	}, time.Now())
	assert.InDelta(t, 123.456, r.CounterKWh, 1e-9)
	assert.True(t, r.IsOn)
	assert.Equal(t, 123.456, r.RawAttributes["17"])
}

func TestParseStatus_OffDeviceWithoutPower(t *testing.T) {
	r := parseStatus("dev1", []dataPoint{
		{Code: "switch", Value: false},
		{Code: "cur_power", Value: 0.0},
	}, time.Now())
	assert.False(t, r.IsOn)
	assert.True(t, r.HasPower)
}

func TestParseStatus_SkipsMalformedPoints(t *testing.T) {
	r := parseStatus("dev1", []dataPoint{
		{Code: "", Value: 1.0},
		{Code: "cur_power", Value: nil},
		{Code: "cur_power", Value: "not-a-number"},
	}, time.Now())
	assert.False(t, r.HasPower)
	// The unparseable raw value is still kept for debugging.
	assert.Equal(t, "not-a-number", r.RawAttributes["cur_power"])
}

func TestDeviceReading_FetchesAndCaches(t *testing.T) {
	var statusCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/token":
			assert.Equal(t, "test-id", r.Header.Get("client_id"))
			assert.NotEmpty(t, r.Header.Get("sign"))
			_, _ = w.Write([]byte(`{"success":true,"result":{"access_token":"tok","expire_time":7200}}`))
		case "/v1.0/devices/dev1/status":
			statusCalls++
			assert.Equal(t, "tok", r.Header.Get("access_token"))
			_, _ = w.Write([]byte(`{"success":true,"result":[
				{"code":"switch","value":true},
				{"code":"add_ele","value":42.5},
				{"code":"cur_power","value":3500}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{
		BaseURL:           srv.URL,
		ClientID:          "test-id",
		ClientSecret:      "test-secret",
		CacheTTL:          time.Minute,
		MaxRequestsPerSec: 100,
	})
	require.NotNil(t, c)

	r, err := c.DeviceReading(context.Background(), "dev1")
	require.NoError(t, err)
	assert.True(t, r.IsOn)
	assert.InDelta(t, 42.5, r.CounterKWh, 1e-9)
	assert.InDelta(t, 350.0, r.PowerW, 1e-9)

	// Second call inside the TTL is served from cache.
	_, err = c.DeviceReading(context.Background(), "dev1")
	require.NoError(t, err)
	assert.Equal(t, 1, statusCalls)

	c.Invalidate("dev1")
	_, err = c.DeviceReading(context.Background(), "dev1")
	require.NoError(t, err)
	assert.Equal(t, 2, statusCalls)
}

func TestDeviceReading_ConcurrentTokenRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/token" {
			// expire_time 0 forces a token refresh on every request.
			_, _ = w.Write([]byte(`{"success":true,"result":{"access_token":"tok","expire_time":0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"result":[
			{"code":"switch","value":true},
			{"code":"add_ele","value":1.5}]}`))
	}))
	defer srv.Close()

	c := NewClient(Options{
		BaseURL:           srv.URL,
		ClientID:          "test-id",
		ClientSecret:      "test-secret",
		MaxRequestsPerSec: 1000,
	})
	require.NotNil(t, c)

	// Distinct device ids so nothing is served from cache; every reading
	// goes through ensureToken concurrently.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := c.DeviceReading(context.Background(), fmt.Sprintf("dev%d", n))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestDeviceReading_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	_, err := c.DeviceReading(context.Background(), "dev1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	assert.Nil(t, NewClient(Options{ClientID: "id"}))
	assert.Nil(t, NewClient(Options{ClientSecret: "secret"}))
}
