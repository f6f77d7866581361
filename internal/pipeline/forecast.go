package pipeline

import (
	"math"
	"time"

	"wattmon/internal/model"
)

// ForecastParams are the forecast heuristics. The defaults reproduce the
// historical tuning; callers override them from config.
type ForecastParams struct {
	// HistoryWeight is applied to the historical daily average when it
	// diverges from the current-power estimate by more than DivergencePct.
	HistoryWeight float64
	DivergencePct float64
	// DayRatio is the assumed day-zone consumption share without history.
	DayRatio float64
	// EfficiencyKWhPerUSDT is the assumed energy spent per USDT earned.
	EfficiencyKWhPerUSDT float64
	// DefaultExchangeRate substitutes for an unavailable USDT/RUB rate.
	DefaultExchangeRate float64
}

// DefaultForecastParams returns the standard tuning: 70/30 history blend
// above 30% divergence, 67/33 day/night split, 0.5 kWh per USDT, 80 RUB/USDT.
func DefaultForecastParams() ForecastParams {
	return ForecastParams{
		HistoryWeight:        0.7,
		DivergencePct:        30,
		DayRatio:             0.67,
		EfficiencyKWhPerUSDT: 0.5,
		DefaultExchangeRate:  80.0,
	}
}

// HistoricalPattern derives a device's daily consumption profile from its
// closed sessions over the trailing window. Returns ok=false when the window
// holds no energy for the device.
func HistoricalPattern(sessions []model.EnergySession, deviceID string, days int, now time.Time) (model.ConsumptionPattern, bool) {
	pattern := model.ConsumptionPattern{DayRatio: 0.67, NightRatio: 0.33}
	if days < 1 {
		days = 1
	}
	since := now.AddDate(0, 0, -days)

	var total, dayEnergy, nightEnergy float64
	for _, s := range FilterByDevice(FilterByTime(sessions, since, now), deviceID) {
		total += s.EnergyKWh
		dayEnergy += s.DayEnergyKWh
		nightEnergy += s.NightEnergyKWh
	}
	if total <= 0 {
		return pattern, false
	}

	pattern.DailyTotalKWh = total / float64(days)
	if dayEnergy+nightEnergy > 0 {
		pattern.DayRatio = dayEnergy / (dayEnergy + nightEnergy)
		pattern.NightRatio = nightEnergy / (dayEnergy + nightEnergy)
	}

	// Spread the daily average over the zone hours to get an hourly profile;
	// peak hours are those 1.5x above the flat average.
	for h := 0; h < 24; h++ {
		if h >= 7 && h < 23 {
			pattern.HourlyAvgKWh[h] = pattern.DailyTotalKWh * pattern.DayRatio / 16
		} else {
			pattern.HourlyAvgKWh[h] = pattern.DailyTotalKWh * pattern.NightRatio / 8
		}
	}
	avg := pattern.DailyTotalKWh / 24
	for h, v := range pattern.HourlyAvgKWh {
		if v > avg*1.5 {
			pattern.PeakHours = append(pattern.PeakHours, h)
		}
	}

	return pattern, true
}

// Estimate24h projects the next 24 hours of consumption and cost from the
// current instantaneous power draw, blended against the historical pattern
// when one exists and disagrees materially.
//
// This is a deliberately lower-fidelity estimate than the session allocator:
// the future monthly baseline is unknown, so only the first tier's rates
// apply. Confidence is "high" when device history backs the estimate,
// otherwise "medium".
func Estimate24h(
	currentPowerW float64,
	pattern *model.ConsumptionPattern,
	ranges []model.TariffRange,
	tariffType string,
	params ForecastParams,
) model.ConsumptionForecast {
	estimated := currentPowerW / 1000 * 24

	confidence := model.ConfidenceMedium
	dayRatio := params.DayRatio
	nightRatio := 1 - params.DayRatio

	if pattern != nil && pattern.DailyTotalKWh > 0 {
		confidence = model.ConfidenceHigh
		dayRatio = pattern.DayRatio
		nightRatio = pattern.NightRatio

		hist := pattern.DailyTotalKWh
		if hist > 0 && math.Abs(estimated-hist)/hist > params.DivergencePct/100 {
			estimated = hist*params.HistoryWeight + estimated*(1-params.HistoryWeight)
		}
	}

	fc := model.ConsumptionForecast{
		EstimatedKWh:   estimated,
		DayEnergyKWh:   estimated * dayRatio,
		NightEnergyKWh: estimated * nightRatio,
		TariffType:     tariffType,
		Confidence:     confidence,
	}

	if len(ranges) > 0 {
		fc.DayRate = ranges[0].DayRate
		fc.NightRate = ranges[0].NightRate
	}
	if tariffType == model.TariffDayNight {
		fc.EstimatedCost = fc.DayEnergyKWh*fc.DayRate + fc.NightEnergyKWh*fc.NightRate
	} else {
		fc.EstimatedCost = fc.EstimatedKWh * fc.DayRate
	}

	return fc
}

// SalesEfficiency estimates how many kWh the device burns per USDT earned,
// from sales income and the historical daily consumption over the same
// window. Falls back to the configured default when either side is missing.
func SalesEfficiency(sales []model.SaleRecord, pattern model.ConsumptionPattern, params ForecastParams) float64 {
	var incomeUSDT float64
	for _, sale := range sales {
		incomeUSDT += sale.TotalReceived
	}
	if incomeUSDT > 0 && pattern.DailyTotalKWh > 0 {
		return pattern.DailyTotalKWh / incomeUSDT
	}
	return params.EfficiencyKWhPerUSDT
}

// EstimateProfitability projects income, cost, and profit over days from a
// 24h consumption forecast. exchangeRate <= 0 uses the documented default.
func EstimateProfitability(
	fc model.ConsumptionForecast,
	days int,
	efficiencyKWhPerUSDT float64,
	exchangeRate float64,
	params ForecastParams,
) model.ProfitForecast {
	if days < 1 {
		days = 1
	}
	totalEnergy := fc.EstimatedKWh * float64(days)
	totalCost := fc.EstimatedCost * float64(days)

	efficiency := efficiencyKWhPerUSDT
	if efficiency <= 0 {
		efficiency = params.EfficiencyKWhPerUSDT
	}
	incomeUSDT := totalEnergy / efficiency

	rate := exchangeRate
	if rate <= 0 {
		rate = params.DefaultExchangeRate
	}
	incomeRUB := incomeUSDT * rate

	profit := incomeRUB - totalCost
	pct := 0.0
	if totalCost > 0 {
		pct = profit / totalCost * 100
	}

	return model.ProfitForecast{
		PeriodDays:          days,
		EstimatedEnergyKWh:  totalEnergy,
		EstimatedCostRUB:    totalCost,
		EstimatedIncomeUSDT: incomeUSDT,
		EstimatedIncomeRUB:  incomeRUB,
		EstimatedProfitRUB:  profit,
		ProfitabilityPct:    pct,
		DayEnergyKWh:        fc.DayEnergyKWh * float64(days),
		NightEnergyKWh:      fc.NightEnergyKWh * float64(days),
		DayRate:             fc.DayRate,
		NightRate:           fc.NightRate,
		TariffType:          fc.TariffType,
		Confidence:          fc.Confidence,
	}
}
