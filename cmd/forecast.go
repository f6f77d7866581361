package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/config"
	"wattmon/internal/model"
	"wattmon/internal/pipeline"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Projected consumption, cost, and profit",
	RunE:  runForecast,
}

var (
	forecastDays   int
	forecastPowerW float64
)

func init() {
	forecastCmd.Flags().IntVar(&forecastDays, "period", 7, "Projection horizon in days")
	forecastCmd.Flags().Float64Var(&forecastPowerW, "power", 0, "Assumed current draw in watts (skips the live reading)")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	dev, err := pickDevice(cfg)
	if err != nil {
		return err
	}

	powerW := forecastPowerW
	if powerW <= 0 {
		client := telemetryClient(cfg)
		if client == nil {
			return errors.New("no --power given and cloud API credentials are not configured")
		}
		reading, err := client.DeviceReading(context.Background(), dev.DeviceID)
		if err != nil {
			return fmt.Errorf("reading current power: %w", err)
		}
		if !reading.HasPower {
			return errors.New("device reports no power reading; pass --power")
		}
		powerW = reading.PowerW
	}

	days := windowDays(cfg)
	now := time.Now()
	sessions, err := st.SessionsBetween(now.AddDate(0, 0, -days), now)
	if err != nil {
		return err
	}
	sales, err := st.SalesBetween(now.AddDate(0, 0, -days), now)
	if err != nil {
		return err
	}

	params := forecastParams(cfg)
	pattern, hasHistory := pipeline.HistoricalPattern(sessions, dev.DeviceID, days, now)

	ranges := config.TariffRanges(cfg.Tariffs, dev.Location, false)
	tariffType := config.TariffType(cfg.Tariffs, dev.Location)

	var patternArg *model.ConsumptionPattern
	if hasHistory {
		patternArg = &pattern
	}
	fc := pipeline.Estimate24h(powerW, patternArg, ranges, tariffType, params)

	efficiency := pipeline.SalesEfficiency(sales, pattern, params)
	rate, _ := fetchRate(context.Background(), cfg)
	pf := pipeline.EstimateProfitability(fc, forecastDays, efficiency, rate, params)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FORECAST  %s, next %dd", dev.Name, forecastDays)))
	fmt.Println()

	profit := cli.FormatRUB(pf.EstimatedProfitRUB)
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Current draw", cli.FormatPower(powerW)},
			{"Energy (24h)", cli.FormatKWh(fc.EstimatedKWh)},
			{"Cost (24h)", cli.FormatRUB(fc.EstimatedCost)},
			{"---"},
			{"Energy", cli.FormatKWh(pf.EstimatedEnergyKWh)},
			{"Cost", cli.FormatRUB(pf.EstimatedCostRUB)},
			{"Income", cli.FormatUSDT(pf.EstimatedIncomeUSDT)},
			{"Income (RUB)", cli.FormatRUB(pf.EstimatedIncomeRUB)},
			{"Profit", cli.Profit(profit, pf.EstimatedProfitRUB >= 0)},
			{"Profitability", cli.FormatPercent(pf.ProfitabilityPct)},
			{"---"},
			{"Confidence", pf.Confidence},
		},
	}))

	if len(pattern.PeakHours) > 0 {
		fmt.Printf("\n  Peak hours: %v\n", pattern.PeakHours)
	}
	return nil
}

// pickDevice resolves --device against config, defaulting to the only
// configured device.
func pickDevice(cfg config.Config) (config.DeviceConfig, error) {
	if len(cfg.Devices) == 0 {
		return config.DeviceConfig{}, errors.New("no devices configured; run `wattmon setup`")
	}
	if flagDevice == "" {
		if len(cfg.Devices) == 1 {
			return cfg.Devices[0], nil
		}
		return config.DeviceConfig{}, errors.New("multiple devices configured; pass --device")
	}
	for _, dev := range cfg.Devices {
		if dev.DeviceID == flagDevice {
			return dev, nil
		}
	}
	return config.DeviceConfig{}, fmt.Errorf("unknown device %q", flagDevice)
}
