// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatKWh formats an energy amount.
// e.g., 0.123 -> "0.123 kWh", 1234.5 -> "1,234.5 kWh"
func FormatKWh(kwh float64) string {
	if kwh >= 1000 {
		whole := int64(kwh)
		frac := kwh - float64(whole)
		return fmt.Sprintf("%s.%d kWh", FormatNumber(whole), int(frac*10))
	}
	if kwh >= 10 {
		return fmt.Sprintf("%.1f kWh", kwh)
	}
	return fmt.Sprintf("%.3f kWh", kwh)
}

// FormatRUB formats a ruble amount with two decimals.
func FormatRUB(rub float64) string {
	if rub >= 1000 || rub <= -1000 {
		whole := int64(rub)
		cents := rub - float64(whole)
		if cents < 0 {
			cents = -cents
		}
		return fmt.Sprintf("%s.%02d ₽", FormatNumber(whole), int(cents*100+0.5))
	}
	return fmt.Sprintf("%.2f ₽", rub)
}

// FormatUSDT formats a USDT amount.
func FormatUSDT(usdt float64) string {
	return fmt.Sprintf("%.2f USDT", usdt)
}

// FormatPower formats an instantaneous power draw.
// e.g., 450 -> "450 W", 1520 -> "1.52 kW"
func FormatPower(watts float64) string {
	if watts >= 1000 {
		return fmt.Sprintf("%.2f kW", watts/1000)
	}
	return fmt.Sprintf("%.0f W", watts)
}

// FormatPercent formats a percentage value (already scaled to 0-100).
func FormatPercent(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}
