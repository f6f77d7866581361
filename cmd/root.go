// Package cmd implements the wattmon command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/config"
	"wattmon/internal/model"
	"wattmon/internal/pipeline"
	"wattmon/internal/rates"
	"wattmon/internal/store"
	"wattmon/internal/telemetry"
)

var (
	flagDays       int
	flagLocation   string
	flagDevice     string
	flagConfigPath string
	flagQuiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "wattmon",
	Short: "Mining rig electricity monitor",
	Long:  "Track smart-plug energy sessions, allocate tariff costs, and measure mining profitability.",
	RunE:  runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	lipgloss.SetColorProfile(termenv.ColorProfile())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 0, "Time window in days (0 = config default)")
	rootCmd.PersistentFlags().StringVarP(&flagLocation, "location", "l", "", "Filter to location")
	rootCmd.PersistentFlags().StringVar(&flagDevice, "device", "", "Filter to device id")
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress warnings")
}

// loadConfig is the shared config loading path used by all commands.
// Tariff table defects are warnings, never fatal.
func loadConfig() (config.Config, error) {
	path := flagConfigPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, defects, err := config.LoadFrom(path)
	if err != nil {
		return cfg, err
	}
	if !flagQuiet {
		for _, d := range defects {
			fmt.Fprintf(os.Stderr, "  warning: tariff config: %s\n", d)
		}
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(filepath.Join(config.DataDir(cfg), "sessions.db"))
}

func windowDays(cfg config.Config) int {
	if flagDays > 0 {
		return flagDays
	}
	if cfg.General.DefaultDays > 0 {
		return cfg.General.DefaultDays
	}
	return 30
}

// loadHistory loads sessions and sales for the selected window, with the
// location/device filters applied to sessions.
func loadHistory(st *store.Store, days int) ([]model.EnergySession, []model.SaleRecord, time.Time, time.Time, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	sessions, err := st.SessionsBetween(since, now)
	if err != nil {
		return nil, nil, since, now, fmt.Errorf("loading sessions: %w", err)
	}
	sessions = pipeline.FilterByLocation(sessions, flagLocation)
	sessions = pipeline.FilterByDevice(sessions, flagDevice)

	sales, err := st.SalesBetween(since, now)
	if err != nil {
		return nil, nil, since, now, fmt.Errorf("loading sales: %w", err)
	}
	return sessions, sales, since, now, nil
}

// fetchRate returns the live USDT/RUB rate, falling back to the configured
// default when the provider is unreachable.
func fetchRate(ctx context.Context, cfg config.Config) (float64, string) {
	rate, source, err := rates.NewClient("").USDTRUB(ctx)
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  warning: exchange rate unavailable (%v), using default %.2f\n",
				err, cfg.Exchange.DefaultRate)
		}
		return cfg.Exchange.DefaultRate, "default"
	}
	return rate, source
}

// telemetryClient builds the cloud API client from config; nil when
// credentials are not configured.
func telemetryClient(cfg config.Config) *telemetry.Client {
	return telemetry.NewClient(telemetry.Options{
		BaseURL:           cfg.Telemetry.BaseURL,
		ClientID:          config.TelemetryClientID(cfg),
		ClientSecret:      config.TelemetryClientSecret(cfg),
		CacheTTL:          time.Duration(cfg.Telemetry.CacheTTLMin) * time.Minute,
		MaxRequestsPerSec: cfg.Telemetry.MaxRequestsPerSec,
		MaxRequestsPerDay: cfg.Telemetry.MaxRequestsPerDay,
	})
}

func forecastParams(cfg config.Config) pipeline.ForecastParams {
	params := pipeline.DefaultForecastParams()
	if cfg.Forecast.HistoryWeight > 0 {
		params.HistoryWeight = cfg.Forecast.HistoryWeight
	}
	if cfg.Forecast.DivergencePct > 0 {
		params.DivergencePct = cfg.Forecast.DivergencePct
	}
	if cfg.Forecast.DayRatio > 0 {
		params.DayRatio = cfg.Forecast.DayRatio
	}
	if cfg.Forecast.EfficiencyKWhPerUSDT > 0 {
		params.EfficiencyKWhPerUSDT = cfg.Forecast.EfficiencyKWhPerUSDT
	}
	if cfg.Exchange.DefaultRate > 0 {
		params.DefaultExchangeRate = cfg.Exchange.DefaultRate
	}
	return params
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
