package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/pipeline"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily consumption and cost table",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	days := windowDays(cfg)
	sessions, _, since, until, err := loadHistory(st, days)
	if err != nil {
		return err
	}
	daily := pipeline.AggregateDays(sessions, since, until)
	if len(daily) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY COSTS  Last %dd", days)))
	fmt.Println()

	rows := make([][]string, 0, len(daily))
	for _, d := range daily {
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			cli.FormatDayOfWeek(int(d.Date.Weekday())),
			formatNumber(int64(d.SessionCount)),
			cli.FormatKWh(d.EnergyKWh),
			cli.FormatKWh(d.DayEnergyKWh),
			cli.FormatKWh(d.NightEnergyKWh),
			cli.FormatRUB(d.CostRUB),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Sessions", "Energy", "Day zone", "Night zone", "Cost"},
		Rows:    rows,
	}))

	// Oldest to newest for the sparkline.
	values := make([]float64, 0, len(daily))
	for i := len(daily) - 1; i >= 0; i-- {
		values = append(values, daily[i].CostRUB)
	}
	fmt.Printf("\n  Trend: %s\n", cli.RenderSparkline(values))

	return nil
}
