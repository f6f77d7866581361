package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"wattmon/internal/cli"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Recent energy sessions",
	RunE:  runSessions,
}

var (
	sessionsLimit  int
	sessionsDetail bool
)

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Number of sessions to show")
	sessionsCmd.Flags().BoolVar(&sessionsDetail, "detail", false, "Show per-tier cost breakdown")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
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
	sessions, _, _, _, err := loadHistory(st, days)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("\n  No sessions in the selected time range.")
		return nil
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	if sessionsLimit > 0 && len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  Last %dd (showing %d)", days, len(sessions))))
	fmt.Println()

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		name := s.DeviceName
		if name == "" {
			name = s.DeviceID
		}
		duration := int64(s.EndTime.Sub(s.StartTime).Seconds())
		rows = append(rows, []string{
			s.StartTime.Local().Format("Jan 02 15:04"),
			truncate(name, 14),
			s.Location,
			cli.FormatDuration(duration),
			cli.FormatKWh(s.EnergyKWh),
			cli.FormatRUB(s.CostRUB),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Start", "Device", "Location", "Duration", "Energy", "Cost"},
		Rows:    rows,
	}))

	if sessionsDetail {
		fmt.Println()
		for _, s := range sessions {
			if len(s.CostDetail) == 0 {
				continue
			}
			detailRows := make([][]string, 0, len(s.CostDetail))
			for _, d := range s.CostDetail {
				detailRows = append(detailRows, []string{
					d.RangeName,
					cli.FormatKWh(d.EnergyKWh),
					fmt.Sprintf("%.2f/%.2f", d.DayRate, d.NightRate),
					cli.FormatRUB(d.Cost),
				})
			}
			fmt.Print(cli.RenderTable(cli.Table{
				Title:   fmt.Sprintf("%s  %s", s.StartTime.Local().Format("Jan 02 15:04"), s.DeviceID),
				Headers: []string{"Tier", "Energy", "Day/Night rate", "Cost"},
				Rows:    detailRows,
			}))
			fmt.Println()
		}
	}

	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
