package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wattmon/internal/config"
	"wattmon/internal/pipeline"
	"wattmon/internal/store"
	"wattmon/internal/telemetry"
	"wattmon/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of devices and today's totals",
	RunE:  runWatch,
}

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second, "Refresh interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	client := telemetryClient(cfg)

	fetch := func(ctx context.Context) tui.Data {
		return fetchWatchData(ctx, cfg, st, client)
	}
	return tui.Run(fetch, watchInterval)
}

func fetchWatchData(ctx context.Context, cfg config.Config, st *store.Store, client *telemetry.Client) tui.Data {
	now := time.Now()
	data := tui.Data{At: now}

	for _, dev := range cfg.Devices {
		row := tui.DeviceRow{Name: dev.Name, Location: dev.Location}
		if client != nil {
			if reading, err := client.DeviceReading(ctx, dev.DeviceID); err == nil {
				row.On = reading.IsOn
				row.PowerW = reading.PowerW
				row.HasPower = reading.HasPower
			} else if data.Err == nil {
				data.Err = fmt.Errorf("%s: %w", dev.DeviceID, err)
			}
		}
		data.Devices = append(data.Devices, row)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sessions, err := st.SessionsBetween(dayStart, now)
	if err != nil {
		data.Err = err
		return data
	}
	sales, err := st.SalesBetween(dayStart, now)
	if err != nil {
		data.Err = err
		return data
	}
	data.Today = pipeline.Aggregate(sessions, sales, cfg.Exchange.DefaultRate, "default", "today", dayStart, now)

	history, err := st.SessionsBetween(now.AddDate(0, 0, -14), now)
	if err == nil {
		data.Days = pipeline.AggregateDays(history, now.AddDate(0, 0, -14), now)
	}
	return data
}
