// Package model defines domain types for wattmon sessions and summaries.
package model

import "time"

// TariffRange is one progressive consumption tier. MaxKWh == nil means the
// tier is unbounded (it must be the last one in a table).
type TariffRange struct {
	Name      string   `toml:"name"`
	MinKWh    float64  `toml:"min_kwh"`
	MaxKWh    *float64 `toml:"max_kwh"`
	DayRate   float64  `toml:"day_rate"`
	NightRate float64  `toml:"night_rate"`
}

// Unbounded reports whether the tier has no upper consumption limit.
func (r TariffRange) Unbounded() bool {
	return r.MaxKWh == nil
}

// Capacity returns the tier width in kWh. ok is false for an unbounded tier.
func (r TariffRange) Capacity() (width float64, ok bool) {
	if r.MaxKWh == nil {
		return 0, false
	}
	return *r.MaxKWh - r.MinKWh, true
}

// Tariff type values for a location.
const (
	TariffSingle   = "single"
	TariffDayNight = "day_night"
)

// LocationTariff holds the tariff configuration for one location.
type LocationTariff struct {
	TariffType string        `toml:"tariff_type"`
	Ranges     []TariffRange `toml:"ranges"`
}

// CostDetail is one per-tier entry of a session cost breakdown.
type CostDetail struct {
	RangeName      string  `json:"range_name"`
	EnergyKWh      float64 `json:"energy_kwh"`
	DayEnergyKWh   float64 `json:"day_energy_kwh"`
	NightEnergyKWh float64 `json:"night_energy_kwh"`
	DayRate        float64 `json:"day_rate"`
	NightRate      float64 `json:"night_rate"`
	Cost           float64 `json:"cost"`
}

// EnergySession is one contiguous device-on interval with its metered energy
// delta and allocated cost. Sessions are created once and never mutated.
type EnergySession struct {
	SessionID      string
	DeviceID       string
	DeviceName     string
	Location       string
	StartTime      time.Time
	EndTime        time.Time
	EnergyKWh      float64
	CostRUB        float64
	TariffType     string
	DayEnergyKWh   float64
	NightEnergyKWh float64
	CostDetail     []CostDetail
}

// SaleRecord is one crypto sale used for income attribution.
type SaleRecord struct {
	OrderID       string
	Currency      string
	AmountSold    float64
	TotalReceived float64
	AvgPrice      float64
	ExecutedAt    time.Time
}

// DeviceReading is one telemetry snapshot for a device.
type DeviceReading struct {
	DeviceID      string
	IsOn          bool
	CounterKWh    float64
	PowerW        float64
	HasPower      bool
	VoltageV      float64
	CurrentA      float64
	At            time.Time
	RawAttributes map[string]any
}
