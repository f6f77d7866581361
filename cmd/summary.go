package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Profitability summary for the selected period",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
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
	sessions, sales, since, until, err := loadHistory(st, days)
	if err != nil {
		return err
	}
	if len(sessions) == 0 && len(sales) == 0 {
		fmt.Println("\n  No sessions or sales recorded yet.")
		fmt.Println("  Start the daemon with `wattmon daemon` to begin monitoring.")
		return nil
	}

	rate, source := fetchRate(context.Background(), cfg)
	sum := pipeline.Aggregate(sessions, sales, rate, source,
		fmt.Sprintf("last %dd", days), since, until)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PROFITABILITY  Last %dd", days)))
	fmt.Println()

	var energy, dayEnergy, nightEnergy float64
	for _, loc := range sum.Locations {
		energy += loc.TotalEnergyKWh
		dayEnergy += loc.DayEnergyKWh
		nightEnergy += loc.NightEnergyKWh
	}

	profit := cli.FormatRUB(sum.NetProfitRUB)
	rows := [][]string{
		{"Sessions", formatNumber(int64(sum.SessionCount))},
		{"Sales", formatNumber(int64(sum.SalesCount))},
		{"---"},
		{"Energy", cli.FormatKWh(energy)},
		{"  Day zone", cli.FormatKWh(dayEnergy)},
		{"  Night zone", cli.FormatKWh(nightEnergy)},
		{"Cost", cli.FormatRUB(sum.TotalCostRUB)},
		{"---"},
		{"Income", cli.FormatUSDT(sum.TotalIncomeUSDT)},
		{"Income (RUB)", cli.FormatRUB(sum.TotalIncomeRUB)},
		{"Profit", cli.Profit(profit, sum.NetProfitRUB >= 0)},
		{"Profitability", cli.FormatPercent(sum.ProfitabilityPct)},
		{"---"},
		{"Avg cost/day", cli.FormatRUB(sum.AvgDailyCostRUB)},
		{"Avg income/day", cli.FormatRUB(sum.AvgDailyIncomeRUB)},
		{"Avg profit/day", cli.FormatRUB(sum.AvgDailyProfitRUB)},
		{"---"},
		{"USDT/RUB", fmt.Sprintf("%.2f (%s)", sum.ExchangeRate, sum.ExchangeRateSource)},
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if len(sum.Locations) > 0 {
		fmt.Println()
		locRows := make([][]string, 0, len(sum.Locations))
		for _, loc := range sum.Locations {
			locRows = append(locRows, []string{
				loc.Location,
				formatNumber(int64(loc.DeviceCount)),
				formatNumber(int64(loc.SessionCount)),
				cli.FormatKWh(loc.TotalEnergyKWh),
				cli.FormatRUB(loc.TotalCostRUB),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By location",
			Headers: []string{"Location", "Devices", "Sessions", "Energy", "Cost"},
			Rows:    locRows,
		}))
	}

	if len(sum.Currencies) > 0 {
		fmt.Println()
		curRows := make([][]string, 0, len(sum.Currencies))
		for _, cur := range sum.Currencies {
			curRows = append(curRows, []string{
				cur.Currency,
				fmt.Sprintf("%.2f", cur.TotalAmount),
				cli.FormatRUB(cur.TotalAmountRUB),
				formatNumber(int64(cur.SalesCount)),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Sales by currency",
			Headers: []string{"Currency", "Amount", "RUB", "Sales"},
			Rows:    curRows,
		}))
	}

	return nil
}
