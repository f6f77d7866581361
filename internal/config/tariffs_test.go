package config

import (
	"strings"
	"testing"

	"wattmon/internal/model"
)

func TestTariffRanges_FallbackWinsOverConfigured(t *testing.T) {
	tariffs := map[string]model.LocationTariff{
		"garage": {TariffType: model.TariffDayNight, Ranges: DefaultRanges},
	}

	got := TariffRanges(tariffs, "garage", true)
	if len(got) != 1 {
		t.Fatalf("fallback ranges = %d entries, want 1", len(got))
	}
	if !got[0].Unbounded() {
		t.Error("fallback range must be unbounded")
	}
}

func TestTariffRanges_UnknownLocationGetsDefaults(t *testing.T) {
	got := TariffRanges(nil, "nowhere", false)
	if len(got) != len(DefaultRanges) {
		t.Fatalf("ranges = %d entries, want %d", len(got), len(DefaultRanges))
	}
}

func TestTariffType_Default(t *testing.T) {
	if tt := TariffType(nil, "nowhere"); tt != model.TariffSingle {
		t.Errorf("TariffType = %q, want %q", tt, model.TariffSingle)
	}
}

func TestNormalizeTariffs_SortsAndAccepts(t *testing.T) {
	tariffs := map[string]model.LocationTariff{
		"garage": {
			TariffType: model.TariffDayNight,
			Ranges: []model.TariffRange{
				{MinKWh: 150, MaxKWh: kwh(800), DayRate: 6.11, NightRate: 4.28},
				{MinKWh: 0, MaxKWh: kwh(150), DayRate: 4.82, NightRate: 3.39},
				{MinKWh: 800, DayRate: 8.13, NightRate: 5.69},
			},
		},
	}

	defects := NormalizeTariffs(tariffs)
	if len(defects) != 0 {
		t.Fatalf("unexpected defects: %v", defects)
	}
	if tariffs["garage"].Ranges[0].MinKWh != 0 {
		t.Errorf("ranges not sorted: first min = %v", tariffs["garage"].Ranges[0].MinKWh)
	}
}

func TestNormalizeTariffs_ReportsGapAndBoundedFinal(t *testing.T) {
	tariffs := map[string]model.LocationTariff{
		"attic": {
			TariffType: model.TariffSingle,
			Ranges: []model.TariffRange{
				{MinKWh: 0, MaxKWh: kwh(100), DayRate: 4},
				{MinKWh: 200, MaxKWh: kwh(500), DayRate: 6},
			},
		},
	}

	defects := NormalizeTariffs(tariffs)
	if len(defects) != 2 {
		t.Fatalf("defects = %v, want gap + bounded-final", defects)
	}
	if !strings.Contains(defects[0], "next starts at") {
		t.Errorf("missing gap defect: %v", defects)
	}
	if !strings.Contains(defects[1], "bounded") {
		t.Errorf("missing bounded-final defect: %v", defects)
	}
}

func TestLoadFrom_MissingFileYieldsDefaults(t *testing.T) {
	cfg, defects, err := LoadFrom("/nonexistent/wattmon/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defects) != 0 {
		t.Fatalf("unexpected defects: %v", defects)
	}
	if cfg.General.DefaultDays != 30 {
		t.Errorf("DefaultDays = %d, want 30", cfg.General.DefaultDays)
	}
	if cfg.Exchange.DefaultRate != 80.0 {
		t.Errorf("DefaultRate = %v, want 80", cfg.Exchange.DefaultRate)
	}
}
