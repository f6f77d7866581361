package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
	"wattmon/internal/config"
	"wattmon/internal/model"
)

var tariffsCmd = &cobra.Command{
	Use:   "tariffs",
	Short: "Show configured tariff tables",
	RunE:  runTariffs,
}

func init() {
	rootCmd.AddCommand(tariffsCmd)
}

func runTariffs(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TARIFF TABLES"))
	fmt.Println()

	if len(cfg.Tariffs) == 0 {
		fmt.Println("  No per-location tariffs configured; the default table applies everywhere.")
		fmt.Println()
		printRangeTable("default", model.TariffSingle, config.DefaultRanges)
		return nil
	}

	locations := make([]string, 0, len(cfg.Tariffs))
	for loc := range cfg.Tariffs {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	for _, loc := range locations {
		lt := cfg.Tariffs[loc]
		tariffType := lt.TariffType
		if tariffType == "" {
			tariffType = model.TariffSingle
		}
		printRangeTable(loc, tariffType, lt.Ranges)
		fmt.Println()
	}

	fmt.Println("  Fallback (unknown baseline):")
	printRangeTable("", model.TariffDayNight, config.FallbackRanges)
	return nil
}

func printRangeTable(location, tariffType string, ranges []model.TariffRange) {
	title := ""
	if location != "" {
		title = fmt.Sprintf("%s (%s)", location, tariffType)
	}

	rows := make([][]string, 0, len(ranges))
	for _, r := range ranges {
		span := fmt.Sprintf("%g+", r.MinKWh)
		if r.MaxKWh != nil {
			span = fmt.Sprintf("%g-%g", r.MinKWh, *r.MaxKWh)
		}
		name := r.Name
		if name == "" {
			name = span
		}
		rows = append(rows, []string{
			name,
			span + " kWh",
			fmt.Sprintf("%.2f ₽", r.DayRate),
			fmt.Sprintf("%.2f ₽", r.NightRate),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Tier", "Monthly span", "Day rate", "Night rate"},
		Rows:    rows,
	}))
}
