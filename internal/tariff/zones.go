// Package tariff implements the day/night zone splitter and the progressive
// tier cost allocator. Everything here is pure computation over immutable
// inputs and is safe to call from any goroutine.
package tariff

import "time"

// Default wall-clock tariff zone bounds: day is [07:00, 23:00).
const (
	DefaultDayStartHour = 7
	DefaultDayEndHour   = 23
)

// SplitZones divides [start, end) into day-tariff and night-tariff hours.
// An hour-of-day h is in the day zone when dayStart <= h < dayEnd; everything
// else is night. Partial hours at either boundary are apportioned by their
// actual overlap, and the walk handles midnight crossings and multi-day
// spans. dayHours + nightHours always equals the interval length in hours to
// floating tolerance; an empty or inverted interval yields (0, 0).
func SplitZones(start, end time.Time, dayStart, dayEnd int) (dayHours, nightHours float64) {
	cur := start
	for cur.Before(end) {
		// Next wall-clock hour boundary in the interval's own location.
		next := time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), 0, 0, 0, cur.Location()).Add(time.Hour)
		if next.After(end) {
			next = end
		}
		h := cur.Hour()
		span := next.Sub(cur).Hours()
		if h >= dayStart && h < dayEnd {
			dayHours += span
		} else {
			nightHours += span
		}
		cur = next
	}
	return dayHours, nightHours
}

// SplitZonesDefault splits with the standard 07:00-23:00 day zone.
func SplitZonesDefault(start, end time.Time) (dayHours, nightHours float64) {
	return SplitZones(start, end, DefaultDayStartHour, DefaultDayEndHour)
}
