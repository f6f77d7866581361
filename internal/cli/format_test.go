package cli

import "testing"

func TestFormatKWh(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.000 kWh"},
		{0.123, "0.123 kWh"},
		{12.34, "12.3 kWh"},
		{1234.5, "1,234.5 kWh"},
	}
	for _, c := range cases {
		if got := FormatKWh(c.in); got != c.want {
			t.Errorf("FormatKWh(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatRUB(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00 ₽"},
		{48.2, "48.20 ₽"},
		{-12.5, "-12.50 ₽"},
		{109300.129, "109,300.13 ₽"},
	}
	for _, c := range cases {
		if got := FormatRUB(c.in); got != c.want {
			t.Errorf("FormatRUB(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatPower(t *testing.T) {
	if got := FormatPower(450); got != "450 W" {
		t.Errorf("FormatPower(450) = %q", got)
	}
	if got := FormatPower(1520); got != "1.52 kW" {
		t.Errorf("FormatPower(1520) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(42.35); got != "+42.3%" {
		t.Errorf("FormatPercent(42.35) = %q", got)
	}
	if got := FormatPercent(-3.2); got != "-3.2%" {
		t.Errorf("FormatPercent(-3.2) = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{125, "2m"},
		{3725, "1h 2m"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
