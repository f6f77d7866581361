package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattmon/internal/model"
)

type fakeRollupStore struct {
	sessions []model.EnergySession
	saved    []model.PeriodSummary
}

func (f *fakeRollupStore) SessionsBetween(start, end time.Time) ([]model.EnergySession, error) {
	var out []model.EnergySession
	for _, s := range f.sessions {
		if !s.StartTime.Before(start) && s.StartTime.Before(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRollupStore) SalesBetween(time.Time, time.Time) ([]model.SaleRecord, error) {
	return nil, nil
}

func (f *fakeRollupStore) SavePeriodSummary(sum model.PeriodSummary) error {
	f.saved = append(f.saved, sum)
	return nil
}

func fixedRate(context.Context) (float64, string) { return 80, "test" }

func TestRollups_DailyOnDayBoundary(t *testing.T) {
	store := &fakeRollupStore{
		sessions: []model.EnergySession{{
			DeviceID:  "dev1",
			StartTime: time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC),
			EnergyKWh: 10,
			CostRUB:   48.2,
		}},
	}
	r := NewRollups(store, fixedRate)

	// Tuesday evening, then Wednesday morning.
	r.Tick(context.Background(), time.Date(2025, 5, 6, 23, 0, 0, 0, time.UTC))
	assert.Empty(t, store.saved)

	r.Tick(context.Background(), time.Date(2025, 5, 7, 0, 5, 0, 0, time.UTC))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "daily", store.saved[0].PeriodName)
	assert.InDelta(t, 48.2, store.saved[0].TotalCostRUB, 1e-9)
	assert.Equal(t, 1, store.saved[0].SessionCount)

	// Same day again: nothing new.
	r.Tick(context.Background(), time.Date(2025, 5, 7, 12, 0, 0, 0, time.UTC))
	assert.Len(t, store.saved, 1)
}

func TestRollups_WeeklyOnMondayMonthlyOnFirst(t *testing.T) {
	store := &fakeRollupStore{}
	r := NewRollups(store, fixedRate)

	// Sunday Nov 30 2025 -> Monday Dec 1: daily + weekly + monthly fire.
	r.Tick(context.Background(), time.Date(2025, 11, 30, 23, 0, 0, 0, time.UTC))
	r.Tick(context.Background(), time.Date(2025, 12, 1, 0, 5, 0, 0, time.UTC))

	require.Len(t, store.saved, 3)
	names := []string{store.saved[0].PeriodName, store.saved[1].PeriodName, store.saved[2].PeriodName}
	assert.Equal(t, []string{"daily", "weekly", "monthly"}, names)
	assert.Equal(t, 7, store.saved[1].DaysCount)
	assert.Equal(t, 30, store.saved[2].DaysCount)
}
