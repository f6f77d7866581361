package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattmon/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wattmon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return v
}

func TestAppendSession_RoundTrip(t *testing.T) {
	s := openTest(t)

	sess := model.EnergySession{
		DeviceID:   "dev1",
		DeviceName: "rig-1",
		Location:   "garage",
		StartTime:  mustTime(t, "2025-05-02 08:00"),
		EndTime:    mustTime(t, "2025-05-02 12:00"),
		EnergyKWh:  10,
		CostRUB:    48.2,
		TariffType: model.TariffDayNight,
		DayEnergyKWh: 10,
		CostDetail: []model.CostDetail{
			{RangeName: "0-150", EnergyKWh: 10, DayEnergyKWh: 10, DayRate: 4.82, Cost: 48.2},
		},
	}
	require.NoError(t, s.AppendSession(&sess))
	assert.NotEmpty(t, sess.SessionID)

	got, err := s.SessionsBetween(mustTime(t, "2025-05-01 00:00"), mustTime(t, "2025-05-03 00:00"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sess.SessionID, got[0].SessionID)
	assert.Equal(t, "rig-1", got[0].DeviceName)
	assert.InDelta(t, 48.2, got[0].CostRUB, 1e-9)
	require.Len(t, got[0].CostDetail, 1)
	assert.Equal(t, "0-150", got[0].CostDetail[0].RangeName)
	assert.True(t, got[0].StartTime.Equal(sess.StartTime))
}

func TestSessionsBetween_WindowIsHalfOpen(t *testing.T) {
	s := openTest(t)
	for _, start := range []string{"2025-05-01 00:00", "2025-05-02 00:00", "2025-05-03 00:00"} {
		sess := model.EnergySession{
			DeviceID:  "dev1",
			StartTime: mustTime(t, start),
			EndTime:   mustTime(t, start).Add(time.Hour),
			EnergyKWh: 1,
		}
		require.NoError(t, s.AppendSession(&sess))
	}

	got, err := s.SessionsBetween(mustTime(t, "2025-05-01 00:00"), mustTime(t, "2025-05-03 00:00"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMonthlyBaseline(t *testing.T) {
	s := openTest(t)
	add := func(device, start string, energy float64) {
		sess := model.EnergySession{
			DeviceID:  device,
			StartTime: mustTime(t, start),
			EndTime:   mustTime(t, start).Add(time.Hour),
			EnergyKWh: energy,
		}
		require.NoError(t, s.AppendSession(&sess))
	}
	add("dev1", "2025-04-30 10:00", 999) // previous month
	add("dev1", "2025-05-02 10:00", 60)
	add("dev1", "2025-05-05 10:00", 80)
	add("dev2", "2025-05-03 10:00", 500) // other device
	add("dev1", "2025-05-10 10:00", 40)  // at/after the session being priced

	monthStart := mustTime(t, "2025-05-01 00:00")
	got, err := s.MonthlyBaseline("dev1", monthStart, mustTime(t, "2025-05-10 10:00"))
	require.NoError(t, err)
	assert.InDelta(t, 140, got, 1e-9)

	// No history yet: baseline is zero, not an error.
	got, err = s.MonthlyBaseline("dev3", monthStart, mustTime(t, "2025-05-10 10:00"))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestRecentSessions_NewestFirst(t *testing.T) {
	s := openTest(t)
	for _, start := range []string{"2025-05-01 00:00", "2025-05-02 00:00", "2025-05-03 00:00"} {
		sess := model.EnergySession{
			DeviceID:  "dev1",
			StartTime: mustTime(t, start),
			EndTime:   mustTime(t, start).Add(time.Hour),
		}
		require.NoError(t, s.AppendSession(&sess))
	}

	got, err := s.RecentSessions(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartTime.After(got[1].StartTime))

	n, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSales_UpsertAndQuery(t *testing.T) {
	s := openTest(t)
	sale := model.SaleRecord{
		OrderID:       "ord-1",
		Currency:      "USDT",
		AmountSold:    10,
		TotalReceived: 10,
		AvgPrice:      1,
		ExecutedAt:    mustTime(t, "2025-05-02 12:00"),
	}
	require.NoError(t, s.UpsertSale(sale))

	// Replaying the same order must not duplicate it.
	sale.TotalReceived = 11
	require.NoError(t, s.UpsertSale(sale))

	got, err := s.SalesBetween(mustTime(t, "2025-05-01 00:00"), mustTime(t, "2025-05-03 00:00"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 11, got[0].TotalReceived, 1e-9)
}

func TestSavePeriodSummary_ReplacesSamePeriod(t *testing.T) {
	s := openTest(t)
	sum := model.PeriodSummary{
		PeriodName:   "daily",
		Start:        mustTime(t, "2025-05-02 00:00"),
		End:          mustTime(t, "2025-05-03 00:00"),
		TotalCostRUB: 48.2,
	}
	require.NoError(t, s.SavePeriodSummary(sum))
	sum.TotalCostRUB = 50
	require.NoError(t, s.SavePeriodSummary(sum))
}
