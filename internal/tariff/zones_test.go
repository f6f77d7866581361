package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return ts
}

func TestSplitZones_DaytimeOnly(t *testing.T) {
	day, night := SplitZonesDefault(at(t, "2025-03-10 08:00:00"), at(t, "2025-03-10 10:00:00"))
	assert.InDelta(t, 2.0, day, 1e-9)
	assert.InDelta(t, 0.0, night, 1e-9)
}

func TestSplitZones_AcrossMidnightAndDayStart(t *testing.T) {
	// 22:00-23:00 day, 23:00-07:00 night, 07:00-08:00 day.
	day, night := SplitZonesDefault(at(t, "2025-03-10 22:00:00"), at(t, "2025-03-11 08:00:00"))
	assert.InDelta(t, 2.0, day, 1e-9)
	assert.InDelta(t, 8.0, night, 1e-9)
	assert.InDelta(t, 10.0, day+night, 1e-9)
}

func TestSplitZones_PartialHoursAtBoundaries(t *testing.T) {
	// 06:30-07:15: 30 min night, 15 min day.
	day, night := SplitZonesDefault(at(t, "2025-03-10 06:30:00"), at(t, "2025-03-10 07:15:00"))
	assert.InDelta(t, 0.25, day, 1e-9)
	assert.InDelta(t, 0.5, night, 1e-9)
}

func TestSplitZones_MidHourWithinOneHour(t *testing.T) {
	day, night := SplitZonesDefault(at(t, "2025-03-10 12:10:00"), at(t, "2025-03-10 12:40:00"))
	assert.InDelta(t, 0.5, day, 1e-9)
	assert.InDelta(t, 0.0, night, 1e-9)
}

func TestSplitZones_MultiDaySpanConserved(t *testing.T) {
	start := at(t, "2025-03-10 13:37:21")
	end := at(t, "2025-03-13 04:02:59")
	day, night := SplitZonesDefault(start, end)
	assert.InDelta(t, end.Sub(start).Hours(), day+night, 1e-9)
	// Each full day contributes 16 day hours.
	assert.Greater(t, day, 32.0)
	assert.Greater(t, night, 16.0)
}

func TestSplitZones_ZeroDuration(t *testing.T) {
	ts := at(t, "2025-03-10 09:00:00")
	day, night := SplitZonesDefault(ts, ts)
	assert.Zero(t, day)
	assert.Zero(t, night)
}

func TestSplitZones_CustomBounds(t *testing.T) {
	// Day zone 0-24 means everything is day.
	day, night := SplitZones(at(t, "2025-03-10 20:00:00"), at(t, "2025-03-11 04:00:00"), 0, 24)
	assert.InDelta(t, 8.0, day, 1e-9)
	assert.Zero(t, night)
}
