package monitor

import (
	"context"
	"log"
	"time"

	"wattmon/internal/model"
	"wattmon/internal/pipeline"
)

// RollupStore provides the history and summary persistence for rollups.
type RollupStore interface {
	SessionsBetween(start, end time.Time) ([]model.EnergySession, error)
	SalesBetween(start, end time.Time) ([]model.SaleRecord, error)
	SavePeriodSummary(sum model.PeriodSummary) error
}

// RateSource supplies the USDT/RUB rate for summary rollups.
type RateSource func(ctx context.Context) (rate float64, source string)

// Rollups persists daily, weekly, and monthly summaries as calendar
// boundaries pass. Summaries are derived data; a missed rollup is only a
// missing cache row, never lost history.
type Rollups struct {
	store RollupStore
	rate  RateSource

	lastDay time.Time
}

// NewRollups creates a rollup scheduler.
func NewRollups(store RollupStore, rate RateSource) *Rollups {
	return &Rollups{store: store, rate: rate}
}

// Tick checks whether a calendar day finished since the previous tick and, if
// so, rolls up the completed day, plus the completed week on Mondays and the
// completed month on the 1st.
func (r *Rollups) Tick(ctx context.Context, now time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if r.lastDay.IsZero() {
		r.lastDay = day
		return
	}
	if !day.After(r.lastDay) {
		return
	}
	r.lastDay = day

	r.save(ctx, "daily", day.AddDate(0, 0, -1), day)
	if now.Weekday() == time.Monday {
		r.save(ctx, "weekly", day.AddDate(0, 0, -7), day)
	}
	if now.Day() == 1 {
		r.save(ctx, "monthly", day.AddDate(0, -1, 0), day)
	}
}

func (r *Rollups) save(ctx context.Context, period string, start, end time.Time) {
	sessions, err := r.store.SessionsBetween(start, end)
	if err != nil {
		log.Printf("rollup: loading sessions for %s: %v", period, err)
		return
	}
	sales, err := r.store.SalesBetween(start, end)
	if err != nil {
		log.Printf("rollup: loading sales for %s: %v", period, err)
		return
	}

	rate, source := r.rate(ctx)
	sum := pipeline.Aggregate(sessions, sales, rate, source, period, start, end)
	if err := r.store.SavePeriodSummary(sum); err != nil {
		log.Printf("rollup: saving %s summary: %v", period, err)
		return
	}
	log.Printf("rollup: %s summary saved for %s: %.2f RUB cost, %d sessions",
		period, start.Format("2006-01-02"), sum.TotalCostRUB, sum.SessionCount)
}
