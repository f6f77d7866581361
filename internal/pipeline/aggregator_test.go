package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattmon/internal/model"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return v
}

func session(t *testing.T, device, location, start string, energy, cost, day, night float64) model.EnergySession {
	t.Helper()
	st := ts(t, start)
	return model.EnergySession{
		SessionID:      device + "-" + start,
		DeviceID:       device,
		Location:       location,
		StartTime:      st,
		EndTime:        st.Add(4 * time.Hour),
		EnergyKWh:      energy,
		CostRUB:        cost,
		DayEnergyKWh:   day,
		NightEnergyKWh: night,
		TariffType:     model.TariffDayNight,
	}
}

func TestAggregate_CostsAndLocations(t *testing.T) {
	sessions := []model.EnergySession{
		session(t, "dev1", "garage", "2025-05-02 08:00", 10, 48.2, 10, 0),
		session(t, "dev2", "garage", "2025-05-03 20:00", 8, 35.0, 6, 2),
		session(t, "dev3", "attic", "2025-05-04 09:00", 5, 24.1, 5, 0),
		// Outside the window: must be ignored.
		session(t, "dev1", "garage", "2025-06-02 08:00", 99, 999, 99, 0),
	}

	start := ts(t, "2025-05-01 00:00")
	end := ts(t, "2025-05-08 00:00")
	got := Aggregate(sessions, nil, 80, "CoinGecko", "week", start, end)

	assert.InDelta(t, 107.3, got.TotalCostRUB, 1e-9)
	assert.Equal(t, 3, got.SessionCount)
	assert.Equal(t, 7, got.DaysCount)

	require.Len(t, got.Locations, 2)
	assert.Equal(t, "garage", got.Locations[0].Location)
	assert.Equal(t, 2, got.Locations[0].DeviceCount)
	assert.InDelta(t, 18, got.Locations[0].TotalEnergyKWh, 1e-9)
}

func TestAggregate_SalesConversion(t *testing.T) {
	sales := []model.SaleRecord{
		{OrderID: "1", Currency: "USDT", TotalReceived: 10, ExecutedAt: ts(t, "2025-05-02 12:00")},
		// Non-tracked currency passes through unconverted (historical
		// behavior, kept on purpose).
		{OrderID: "2", Currency: "RUB", TotalReceived: 500, ExecutedAt: ts(t, "2025-05-03 12:00")},
	}

	got := Aggregate(nil, sales, 80, "CoinGecko", "week",
		ts(t, "2025-05-01 00:00"), ts(t, "2025-05-08 00:00"))

	assert.InDelta(t, 10*80+500, got.TotalIncomeRUB, 1e-9)
	assert.Equal(t, 2, got.SalesCount)
	require.Len(t, got.Currencies, 2)
}

func TestAggregate_ZeroCostProfitabilityIsZero(t *testing.T) {
	sales := []model.SaleRecord{
		{OrderID: "1", Currency: "USDT", TotalReceived: 10, ExecutedAt: ts(t, "2025-05-02 12:00")},
	}
	got := Aggregate(nil, sales, 80, "CoinGecko", "day",
		ts(t, "2025-05-02 00:00"), ts(t, "2025-05-03 00:00"))

	assert.Zero(t, got.ProfitabilityPct)
	assert.InDelta(t, 800, got.NetProfitRUB, 1e-9)
}

func TestAggregate_SubDayWindowDividesByOneDay(t *testing.T) {
	sessions := []model.EnergySession{
		session(t, "dev1", "garage", "2025-05-02 08:00", 10, 48.2, 10, 0),
	}
	got := Aggregate(sessions, nil, 0, "", "6h",
		ts(t, "2025-05-02 06:00"), ts(t, "2025-05-02 12:00"))

	assert.Equal(t, 1, got.DaysCount)
	assert.InDelta(t, got.TotalCostRUB, got.AvgDailyCostRUB, 1e-9)
}

func TestAggregate_MatchesSummedSessionCosts(t *testing.T) {
	var sessions []model.EnergySession
	var want float64
	for i, cost := range []float64{12.5, 0, 88.31, 7.779} {
		s := session(t, "dev1", "garage", "2025-05-02 08:00", float64(i), cost, float64(i), 0)
		s.StartTime = s.StartTime.Add(time.Duration(i) * time.Hour)
		sessions = append(sessions, s)
		want += cost
	}

	got := Aggregate(sessions, nil, 0, "", "day",
		ts(t, "2025-05-02 00:00"), ts(t, "2025-05-03 00:00"))
	assert.InDelta(t, want, got.TotalCostRUB, 1e-9)
}

func TestAggregateDays_FillsGaps(t *testing.T) {
	sessions := []model.EnergySession{
		session(t, "dev1", "garage", "2025-05-02 08:00", 10, 48.2, 10, 0),
	}
	days := AggregateDays(sessions, ts(t, "2025-05-01 00:00"), ts(t, "2025-05-04 00:00"))

	require.GreaterOrEqual(t, len(days), 3)
	var nonZero int
	for _, d := range days {
		if d.CostRUB > 0 {
			nonZero++
		}
	}
	assert.Equal(t, 1, nonZero)
	// Most recent first.
	assert.True(t, days[0].Date.After(days[len(days)-1].Date))
}

func TestAggregateDays_CoversLocalDayBounds(t *testing.T) {
	// Times just past local midnight: the filled range must span the local
	// calendar dates of the window, whatever the zone's UTC offset.
	since := time.Date(2025, 5, 1, 0, 30, 0, 0, time.Local)
	until := time.Date(2025, 5, 4, 0, 30, 0, 0, time.Local)
	days := AggregateDays(nil, since, until)

	require.Len(t, days, 4)
	assert.Equal(t, "2025-05-04", days[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2025-05-01", days[len(days)-1].Date.Format("2006-01-02"))
}

func TestFilterByLocationAndDevice(t *testing.T) {
	sessions := []model.EnergySession{
		session(t, "dev1", "garage", "2025-05-02 08:00", 1, 1, 1, 0),
		session(t, "dev2", "attic", "2025-05-02 09:00", 1, 1, 1, 0),
	}

	assert.Len(t, FilterByLocation(sessions, "garage"), 1)
	assert.Len(t, FilterByLocation(sessions, ""), 2)
	assert.Len(t, FilterByDevice(sessions, "dev2"), 1)
}
