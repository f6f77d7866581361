package model

import "time"

// LocationStats holds per-location energy and cost totals within a period.
type LocationStats struct {
	Location       string
	TotalEnergyKWh float64
	TotalCostRUB   float64
	DayEnergyKWh   float64
	NightEnergyKWh float64
	DeviceCount    int
	SessionCount   int
}

// CurrencyStats holds per-currency sale totals within a period.
type CurrencyStats struct {
	Currency       string
	TotalAmount    float64
	TotalAmountRUB float64
	SalesCount     int
}

// PeriodSummary is the aggregated profitability view of a [start, end) window.
// It is derived from sessions and sales and always recomputable.
type PeriodSummary struct {
	PeriodName string
	Start      time.Time
	End        time.Time
	DaysCount  int

	TotalIncomeUSDT float64
	TotalIncomeRUB  float64
	TotalCostRUB    float64
	NetProfitRUB    float64
	// ProfitabilityPct is net profit over cost in percent; 0 when cost is 0.
	ProfitabilityPct float64

	AvgDailyIncomeRUB float64
	AvgDailyCostRUB   float64
	AvgDailyProfitRUB float64

	ExchangeRate       float64
	ExchangeRateSource string

	Locations  []LocationStats
	Currencies []CurrencyStats

	SalesCount   int
	SessionCount int
}

// DailyCost holds per-day consumption and cost totals.
type DailyCost struct {
	Date           time.Time
	SessionCount   int
	EnergyKWh      float64
	DayEnergyKWh   float64
	NightEnergyKWh float64
	CostRUB        float64
}

// Forecast confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// ConsumptionForecast is a projected 24h consumption estimate.
type ConsumptionForecast struct {
	EstimatedKWh   float64
	EstimatedCost  float64
	DayEnergyKWh   float64
	NightEnergyKWh float64
	DayRate        float64
	NightRate      float64
	TariffType     string
	Confidence     string
}

// ProfitForecast is a projected N-day profitability estimate.
type ProfitForecast struct {
	PeriodDays          int
	EstimatedEnergyKWh  float64
	EstimatedCostRUB    float64
	EstimatedIncomeUSDT float64
	EstimatedIncomeRUB  float64
	EstimatedProfitRUB  float64
	ProfitabilityPct    float64
	DayEnergyKWh        float64
	NightEnergyKWh      float64
	DayRate             float64
	NightRate           float64
	TariffType          string
	Confidence          string
}

// ConsumptionPattern summarizes a device's historical daily behavior.
type ConsumptionPattern struct {
	HourlyAvgKWh  [24]float64
	DailyTotalKWh float64
	PeakHours     []int
	DayRatio      float64
	NightRatio    float64
}
