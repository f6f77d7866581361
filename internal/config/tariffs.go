package config

import (
	"fmt"
	"sort"

	"wattmon/internal/model"
)

func kwh(v float64) *float64 { return &v }

// DefaultRanges is the residential tiered table used when a location has no
// configured tariff.
var DefaultRanges = []model.TariffRange{
	{Name: "0-150", MinKWh: 0, MaxKWh: kwh(150), DayRate: 4.82, NightRate: 3.39},
	{Name: "150-800", MinKWh: 150, MaxKWh: kwh(800), DayRate: 6.11, NightRate: 4.28},
	{Name: "800+", MinKWh: 800, MaxKWh: nil, DayRate: 8.13, NightRate: 5.69},
}

// FallbackRanges is the single flat high tier substituted when the monthly
// baseline for a device cannot be determined. Unbounded on purpose: fallback
// mode must be able to absorb any session regardless of the unknown baseline.
var FallbackRanges = []model.TariffRange{
	{Name: "fallback", MinKWh: 0, MaxKWh: nil, DayRate: 8.13, NightRate: 5.69},
}

// TariffRanges resolves the range table for a location. useFallback selects
// the flat fallback table, used when the baseline lookup failed upstream.
func TariffRanges(tariffs map[string]model.LocationTariff, location string, useFallback bool) []model.TariffRange {
	if useFallback {
		return FallbackRanges
	}
	if lt, ok := tariffs[location]; ok && len(lt.Ranges) > 0 {
		return lt.Ranges
	}
	return DefaultRanges
}

// TariffType resolves the tariff type for a location, defaulting to "single".
func TariffType(tariffs map[string]model.LocationTariff, location string) string {
	if lt, ok := tariffs[location]; ok && lt.TariffType != "" {
		return lt.TariffType
	}
	return model.TariffSingle
}

// NormalizeTariffs sorts each location's ranges ascending by min_kwh and
// reports structural defects (gaps, overlaps, a non-final unbounded tier, or
// a bounded final tier). Defects are reported, not fixed: the allocator
// tolerates malformed tables and logs undistributed energy.
func NormalizeTariffs(tariffs map[string]model.LocationTariff) []string {
	var defects []string

	for location, lt := range tariffs {
		ranges := lt.Ranges
		sort.SliceStable(ranges, func(i, j int) bool {
			return ranges[i].MinKWh < ranges[j].MinKWh
		})

		for i, r := range ranges {
			last := i == len(ranges)-1
			if r.Unbounded() && !last {
				defects = append(defects,
					fmt.Sprintf("%s: range %q is unbounded but not last", location, rangeLabel(r)))
				continue
			}
			if last {
				if !r.Unbounded() {
					defects = append(defects,
						fmt.Sprintf("%s: final range %q is bounded; energy past %.0f kWh has no rate", location, rangeLabel(r), *r.MaxKWh))
				}
				continue
			}
			if *r.MaxKWh != ranges[i+1].MinKWh {
				defects = append(defects,
					fmt.Sprintf("%s: range %q ends at %.0f but next starts at %.0f", location, rangeLabel(r), *r.MaxKWh, ranges[i+1].MinKWh))
			}
		}

		if lt.TariffType != model.TariffSingle && lt.TariffType != model.TariffDayNight && lt.TariffType != "" {
			defects = append(defects, fmt.Sprintf("%s: unknown tariff_type %q", location, lt.TariffType))
		}
	}

	return defects
}

func rangeLabel(r model.TariffRange) string {
	if r.Name != "" {
		return r.Name
	}
	if r.MaxKWh == nil {
		return fmt.Sprintf("%g+", r.MinKWh)
	}
	return fmt.Sprintf("%g-%g", r.MinKWh, *r.MaxKWh)
}
