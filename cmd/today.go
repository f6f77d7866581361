package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/pipeline"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Today's consumption, cost, and income",
	RunE:  runToday,
}

func init() {
	rootCmd.AddCommand(todayCmd)
}

func runToday(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sessions, err := st.SessionsBetween(dayStart, now)
	if err != nil {
		return err
	}
	sessions = pipeline.FilterByLocation(sessions, flagLocation)
	sessions = pipeline.FilterByDevice(sessions, flagDevice)
	sales, err := st.SalesBetween(dayStart, now)
	if err != nil {
		return err
	}

	rate, source := fetchRate(context.Background(), cfg)
	sum := pipeline.Aggregate(sessions, sales, rate, source, "today", dayStart, now)

	fmt.Println()
	fmt.Println(cli.RenderTitle("TODAY  " + now.Format("Mon Jan 02")))
	fmt.Println()

	if sum.SessionCount == 0 && sum.SalesCount == 0 {
		fmt.Println("  Nothing recorded today yet.")
		return nil
	}

	var energy float64
	for _, loc := range sum.Locations {
		energy += loc.TotalEnergyKWh
	}

	profit := cli.FormatRUB(sum.NetProfitRUB)
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Sessions", formatNumber(int64(sum.SessionCount))},
			{"Energy", cli.FormatKWh(energy)},
			{"Cost", cli.FormatRUB(sum.TotalCostRUB)},
			{"Income", cli.FormatRUB(sum.TotalIncomeRUB)},
			{"Profit", cli.Profit(profit, sum.NetProfitRUB >= 0)},
		},
	}))

	// Devices still running add cost not yet captured in a closed session.
	if client := telemetryClient(cfg); client != nil {
		var draw float64
		for _, dev := range cfg.Devices {
			if r, err := client.DeviceReading(context.Background(), dev.DeviceID); err == nil && r.IsOn {
				draw += r.PowerW
			}
		}
		if draw > 0 {
			fmt.Printf("\n  Current draw: %s (not yet in a closed session)\n", cli.FormatPower(draw))
		}
	}
	return nil
}
