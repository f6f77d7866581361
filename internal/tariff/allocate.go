package tariff

import (
	"fmt"
	"log"

	"wattmon/internal/model"
)

// Allocation is the allocator result. Sum of Detail energies equals
// DayEnergyKWh+NightEnergyKWh equals the metered energy, and the detail costs
// sum to CostRUB, both to floating tolerance.
type Allocation struct {
	CostRUB        float64
	DayEnergyKWh   float64
	NightEnergyKWh float64
	TariffType     string
	Detail         []model.CostDetail
	// UndistributedKWh is nonzero only for malformed range tables (gaps or a
	// bounded final tier the baseline overruns). It is a configuration
	// defect, logged and reported, never an error.
	UndistributedKWh float64
	UsedFallback     bool
}

const epsilon = 1e-9

// Allocate distributes a metered energy delta across day/night zones and
// progressive monthly tiers, returning total cost and a per-tier breakdown.
//
// The zone split is proportional to time, not instantaneous power: the
// session is assumed to draw constant power, so day and night energy are the
// metered total scaled by day/night hours. Within each tier the day/night
// sub-amounts follow the ratio of the energy still remaining, which keeps the
// blend consistent after earlier tiers consumed their share.
//
// Costs accumulate at full precision; rounding is presentation's job.
//
// ranges must already be resolved by the caller. When the monthly baseline
// could not be determined upstream, pass the fallback table and set
// useFallback so the substitution is explicit rather than inferred here.
func Allocate(
	dayHours, nightHours float64,
	energyKWh float64,
	previousMonthlyKWh float64,
	ranges []model.TariffRange,
	tariffType string,
	useFallback bool,
) Allocation {
	alloc := Allocation{TariffType: tariffType, UsedFallback: useFallback}

	totalHours := dayHours + nightHours
	if totalHours <= 0 {
		// Zero-duration sessions contribute nothing; not an error.
		return alloc
	}

	dayEnergy := energyKWh * dayHours / totalHours
	nightEnergy := energyKWh * nightHours / totalHours
	alloc.DayEnergyKWh = dayEnergy
	alloc.NightEnergyKWh = nightEnergy

	remaining := energyKWh
	remainingDay := dayEnergy
	remainingNight := nightEnergy
	currentMonthly := previousMonthlyKWh

	for _, r := range ranges {
		if remaining <= epsilon {
			break
		}

		// A tier is active once cumulative monthly consumption has not yet
		// passed its upper bound. Tiers whose span the baseline already
		// exhausted are skipped entirely.
		if width, bounded := r.Capacity(); bounded && currentMonthly >= r.MinKWh+width {
			continue
		}
		if currentMonthly < r.MinKWh {
			// Non-contiguous table: jump the gap rather than mis-rating it.
			currentMonthly = r.MinKWh
		}

		slice := remaining
		if width, bounded := r.Capacity(); bounded {
			available := r.MinKWh + width - currentMonthly
			if available < slice {
				slice = available
			}
		}
		if slice <= epsilon {
			continue
		}

		dayRatio := 0.0
		nightRatio := 0.0
		if remaining > 0 {
			dayRatio = remainingDay / remaining
			nightRatio = remainingNight / remaining
		}
		daySlice := slice * dayRatio
		nightSlice := slice * nightRatio

		var cost float64
		if tariffType == model.TariffDayNight {
			cost = daySlice*r.DayRate + nightSlice*r.NightRate
		} else {
			cost = slice * r.DayRate
		}

		alloc.CostRUB += cost
		alloc.Detail = append(alloc.Detail, model.CostDetail{
			RangeName:      rangeName(r),
			EnergyKWh:      slice,
			DayEnergyKWh:   daySlice,
			NightEnergyKWh: nightSlice,
			DayRate:        r.DayRate,
			NightRate:      r.NightRate,
			Cost:           cost,
		})

		remaining -= slice
		remainingDay -= daySlice
		remainingNight -= nightSlice
		currentMonthly += slice
	}

	if remaining > epsilon {
		// Well-formed tables (contiguous, unbounded final tier) never leave
		// energy behind. Surface the defect instead of dropping it silently.
		alloc.UndistributedKWh = remaining
		log.Printf("tariff: %.3f kWh undistributed after exhausting %d ranges (baseline %.3f); check tariff table",
			remaining, len(ranges), previousMonthlyKWh)
	}

	return alloc
}

func rangeName(r model.TariffRange) string {
	if r.Name != "" {
		return r.Name
	}
	if r.MaxKWh == nil {
		return fmt.Sprintf("%g+", r.MinKWh)
	}
	return fmt.Sprintf("%g-%g", r.MinKWh, *r.MaxKWh)
}
