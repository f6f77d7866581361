// Package pipeline computes period summaries and forecasts from sessions and
// sales. Everything here is a pure function of its inputs; persistence and
// I/O belong to the callers.
package pipeline

import (
	"sort"
	"time"

	"wattmon/internal/model"
)

// TrackedCurrency is the crypto asset whose sales convert via the exchange
// rate. Sales in any other currency are summed into RUB totals as-is; that
// matches the historical behavior and is intentional until multi-currency
// handling is clarified.
const TrackedCurrency = "USDT"

// Aggregate rolls sessions and sales falling in [start, end) into a
// PeriodSummary. exchangeRate converts tracked-currency sales to RUB; pass 0
// when unavailable and the caller's documented default instead.
func Aggregate(
	sessions []model.EnergySession,
	sales []model.SaleRecord,
	exchangeRate float64,
	rateSource string,
	periodName string,
	start, end time.Time,
) model.PeriodSummary {
	summary := model.PeriodSummary{
		PeriodName:         periodName,
		Start:              start,
		End:                end,
		ExchangeRate:       exchangeRate,
		ExchangeRateSource: rateSource,
	}

	currencyMap := make(map[string]*model.CurrencyStats)
	for _, sale := range sales {
		if sale.ExecutedAt.Before(start) || !sale.ExecutedAt.Before(end) {
			continue
		}

		amountRUB := sale.TotalReceived
		if sale.Currency == TrackedCurrency && exchangeRate > 0 {
			amountRUB = sale.TotalReceived * exchangeRate
		}

		summary.TotalIncomeUSDT += sale.TotalReceived
		summary.TotalIncomeRUB += amountRUB
		summary.SalesCount++

		cs, ok := currencyMap[sale.Currency]
		if !ok {
			cs = &model.CurrencyStats{Currency: sale.Currency}
			currencyMap[sale.Currency] = cs
		}
		cs.TotalAmount += sale.TotalReceived
		cs.TotalAmountRUB += amountRUB
		cs.SalesCount++
	}

	locMap := make(map[string]*model.LocationStats)
	locDevices := make(map[string]map[string]struct{})
	for _, s := range sessions {
		if s.StartTime.Before(start) || !s.StartTime.Before(end) {
			continue
		}

		ls, ok := locMap[s.Location]
		if !ok {
			ls = &model.LocationStats{Location: s.Location}
			locMap[s.Location] = ls
			locDevices[s.Location] = make(map[string]struct{})
		}
		ls.TotalEnergyKWh += s.EnergyKWh
		ls.TotalCostRUB += s.CostRUB
		ls.DayEnergyKWh += s.DayEnergyKWh
		ls.NightEnergyKWh += s.NightEnergyKWh
		ls.SessionCount++
		locDevices[s.Location][s.DeviceID] = struct{}{}

		summary.TotalCostRUB += s.CostRUB
		summary.SessionCount++
	}

	summary.NetProfitRUB = summary.TotalIncomeRUB - summary.TotalCostRUB
	if summary.TotalCostRUB > 0 {
		summary.ProfitabilityPct = summary.NetProfitRUB / summary.TotalCostRUB * 100
	}

	// Sub-day windows still divide by one full day.
	summary.DaysCount = int(end.Sub(start).Hours() / 24)
	if summary.DaysCount < 1 {
		summary.DaysCount = 1
	}
	days := float64(summary.DaysCount)
	summary.AvgDailyIncomeRUB = summary.TotalIncomeRUB / days
	summary.AvgDailyCostRUB = summary.TotalCostRUB / days
	summary.AvgDailyProfitRUB = summary.NetProfitRUB / days

	for loc, ls := range locMap {
		ls.DeviceCount = len(locDevices[loc])
		summary.Locations = append(summary.Locations, *ls)
	}
	sort.Slice(summary.Locations, func(i, j int) bool {
		return summary.Locations[i].TotalCostRUB > summary.Locations[j].TotalCostRUB
	})

	for _, cs := range currencyMap {
		summary.Currencies = append(summary.Currencies, *cs)
	}
	sort.Slice(summary.Currencies, func(i, j int) bool {
		return summary.Currencies[i].TotalAmountRUB > summary.Currencies[j].TotalAmountRUB
	})

	return summary
}

// AggregateDays computes per-day consumption and cost from sessions, filling
// empty days with zeros so tables show gaps. Most recent day first.
func AggregateDays(sessions []model.EnergySession, since, until time.Time) []model.DailyCost {
	dayMap := make(map[string]*model.DailyCost)

	for _, s := range FilterByTime(sessions, since, until) {
		dayKey := s.StartTime.Local().Format("2006-01-02")
		dc, ok := dayMap[dayKey]
		if !ok {
			d, _ := time.ParseInLocation("2006-01-02", dayKey, time.Local)
			dc = &model.DailyCost{Date: d}
			dayMap[dayKey] = dc
		}
		dc.SessionCount++
		dc.EnergyKWh += s.EnergyKWh
		dc.DayEnergyKWh += s.DayEnergyKWh
		dc.NightEnergyKWh += s.NightEnergyKWh
		dc.CostRUB += s.CostRUB
	}

	day := localDayStart(since)
	end := localDayStart(until)
	for !day.After(end) {
		dayKey := day.Format("2006-01-02")
		if _, ok := dayMap[dayKey]; !ok {
			dayMap[dayKey] = &model.DailyCost{Date: day}
		}
		day = day.AddDate(0, 0, 1)
	}

	days := make([]model.DailyCost, 0, len(dayMap))
	for _, dc := range dayMap {
		days = append(days, *dc)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})

	return days
}

// localDayStart returns midnight of t's calendar day in local time. Truncate
// cuts at UTC day boundaries, which shifts the date in negative-offset zones.
func localDayStart(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// FilterByTime returns sessions whose start time falls within [since, until).
func FilterByTime(sessions []model.EnergySession, since, until time.Time) []model.EnergySession {
	if since.IsZero() && until.IsZero() {
		return sessions
	}

	var result []model.EnergySession
	for _, s := range sessions {
		if !since.IsZero() && s.StartTime.Before(since) {
			continue
		}
		if !until.IsZero() && !s.StartTime.Before(until) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// FilterByLocation returns sessions for the given location; empty matches all.
func FilterByLocation(sessions []model.EnergySession, location string) []model.EnergySession {
	if location == "" {
		return sessions
	}
	var result []model.EnergySession
	for _, s := range sessions {
		if s.Location == location {
			result = append(result, s)
		}
	}
	return result
}

// FilterByDevice returns sessions for the given device id; empty matches all.
func FilterByDevice(sessions []model.EnergySession, deviceID string) []model.EnergySession {
	if deviceID == "" {
		return sessions
	}
	var result []model.EnergySession
	for _, s := range sessions {
		if s.DeviceID == deviceID {
			result = append(result, s)
		}
	}
	return result
}
