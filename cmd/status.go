package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/telemetry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Current device state and monthly consumption",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Devices) == 0 {
		fmt.Println("\n  No devices configured. Run `wattmon setup` first.")
		return nil
	}

	client := telemetryClient(cfg)
	if client == nil {
		fmt.Println("\n  Cloud API credentials are not configured.")
		fmt.Println("  Set WATTMON_CLIENT_ID / WATTMON_CLIENT_SECRET or run `wattmon setup`.")
		return nil
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	fmt.Println()
	fmt.Println(cli.RenderTitle("DEVICE STATUS"))
	fmt.Println()

	ctx := context.Background()
	rows := make([][]string, 0, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		state, power := "?", "-"
		reading, err := client.DeviceReading(ctx, dev.DeviceID)
		switch {
		case errors.Is(err, telemetry.ErrQuotaExceeded):
			state = "quota"
		case err != nil:
			state = "error"
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  warning: %s: %v\n", dev.DeviceID, err)
			}
		case reading.IsOn:
			state = "ON"
		default:
			state = "off"
		}
		if err == nil && reading.HasPower {
			power = cli.FormatPower(reading.PowerW)
		}

		monthly, err := st.MonthlyBaseline(dev.DeviceID, monthStart, now)
		monthlyStr := "-"
		if err == nil {
			monthlyStr = cli.FormatKWh(monthly)
		}

		rows = append(rows, []string{dev.Name, dev.Location, state, power, monthlyStr})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Device", "Location", "State", "Power", "This month"},
		Rows:    rows,
	}))

	q := client.Quota()
	if q.Limit > 0 {
		fmt.Printf("\n  API quota: %s of %s requests used today\n",
			formatNumber(int64(q.Used)), formatNumber(int64(q.Limit)))
	}
	return nil
}
