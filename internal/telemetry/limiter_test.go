package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattmon/internal/model"
)

func TestLimiter_DailyQuota(t *testing.T) {
	l := NewLimiter(1000, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire())
	}
	assert.ErrorIs(t, l.Acquire(), ErrQuotaExceeded)

	st := l.Status()
	assert.Equal(t, 3, st.Used)
	assert.Equal(t, 0, st.Remaining)
}

func TestLimiter_QuotaResetsAtMidnight(t *testing.T) {
	l := NewLimiter(1000, 2)
	day := time.Date(2025, 5, 2, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire())
	assert.ErrorIs(t, l.Acquire(), ErrQuotaExceeded)

	day = day.Add(2 * time.Minute) // past midnight
	require.NoError(t, l.Acquire())
	assert.Equal(t, 1, l.Status().Used)
}

func TestLimiter_QuotaRollsOnLocalMidnight(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	l := NewLimiter(1000, 2)
	now := time.Date(2025, 5, 2, 18, 0, 0, 0, zone) // 23:00 UTC
	l.now = func() time.Time { return now }

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire())
	assert.ErrorIs(t, l.Acquire(), ErrQuotaExceeded)

	// The UTC day has rolled over but the local one has not.
	now = now.Add(2 * time.Hour) // 20:00 local, 01:00 UTC next day
	assert.ErrorIs(t, l.Acquire(), ErrQuotaExceeded)

	now = now.Add(5 * time.Hour) // 01:00 local, past local midnight
	require.NoError(t, l.Acquire())
	assert.Equal(t, 1, l.Status().Used)
}

func TestLimiter_UnlimitedDailyBudget(t *testing.T) {
	l := NewLimiter(1000, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire())
	}
	assert.Equal(t, -1, l.Status().Remaining)
}

func TestReadingCache_TTLExpiry(t *testing.T) {
	c := newReadingCache(time.Minute)
	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.put("dev1", model.DeviceReading{DeviceID: "dev1", CounterKWh: 10})
	got, ok := c.get("dev1")
	require.True(t, ok)
	assert.InDelta(t, 10, got.CounterKWh, 1e-9)

	now = now.Add(61 * time.Second)
	_, ok = c.get("dev1")
	assert.False(t, ok)
}
