// Package tui provides the live Bubble Tea dashboard shown by `wattmon watch`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wattmon/internal/cli"
	"wattmon/internal/model"
)

// DeviceRow is one device line on the dashboard.
type DeviceRow struct {
	Name     string
	Location string
	On       bool
	PowerW   float64
	HasPower bool
}

// Data is one refresh of everything the dashboard shows.
type Data struct {
	At      time.Time
	Devices []DeviceRow
	Today   model.PeriodSummary
	Days    []model.DailyCost
	Err     error
}

// FetchFunc loads a dashboard refresh.
type FetchFunc func(ctx context.Context) Data

type dataMsg Data

type tickMsg time.Time

// App is the watch dashboard model.
type App struct {
	fetch    FetchFunc
	interval time.Duration

	spinner spinner.Model
	data    Data
	loaded  bool
	width   int
}

// New creates the dashboard model.
func New(fetch FetchFunc, interval time.Duration) App {
	if interval < time.Second {
		interval = 5 * time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)
	return App{fetch: fetch, interval: interval, spinner: sp}
}

// Run starts the dashboard and blocks until the user quits.
func Run(fetch FetchFunc, interval time.Duration) error {
	p := tea.NewProgram(New(fetch, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.fetchCmd(), a.tickCmd())
}

func (a App) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return dataMsg(a.fetch(ctx))
	}
}

func (a App) tickCmd() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return a, tea.Quit
		case "r":
			return a, a.fetchCmd()
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
	case dataMsg:
		a.data = Data(msg)
		a.loaded = true
	case tickMsg:
		return a, tea.Batch(a.fetchCmd(), a.tickCmd())
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) View() string {
	if !a.loaded {
		return fmt.Sprintf("\n  %s loading...\n", a.spinner.View())
	}

	var b strings.Builder
	b.WriteString(cli.RenderTitle("wattmon"))
	b.WriteString("\n\n")

	if a.data.Err != nil {
		b.WriteString(cli.WarnStyle.Render("  " + a.data.Err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(a.deviceTable())
	b.WriteString("\n")
	b.WriteString(a.todayLines())
	b.WriteString("\n")
	b.WriteString(a.costSparkline())
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(cli.ColorTextMuted).
		Render(fmt.Sprintf("  updated %s · r refresh · q quit", a.data.At.Format("15:04:05"))))
	b.WriteString("\n")
	return b.String()
}

func (a App) deviceTable() string {
	t := cli.Table{
		Title:   "Devices",
		Headers: []string{"Device", "Location", "State", "Power"},
	}
	for _, d := range a.data.Devices {
		state := "off"
		if d.On {
			state = "ON"
		}
		power := "-"
		if d.HasPower {
			power = cli.FormatPower(d.PowerW)
		}
		t.Rows = append(t.Rows, []string{d.Name, d.Location, state, power})
	}
	if len(t.Rows) == 0 {
		t.Rows = append(t.Rows, []string{"(no devices configured)", "", "", ""})
	}
	return cli.RenderTable(t)
}

func (a App) todayLines() string {
	today := a.data.Today
	profit := cli.FormatRUB(today.NetProfitRUB)
	return fmt.Sprintf("  Today: %s sessions · %s · cost %s · profit %s\n",
		cli.FormatNumber(int64(today.SessionCount)),
		cli.FormatKWh(totalEnergy(today)),
		cli.FormatRUB(today.TotalCostRUB),
		cli.Profit(profit, today.NetProfitRUB >= 0))
}

func (a App) costSparkline() string {
	if len(a.data.Days) == 0 {
		return ""
	}
	// Days arrive newest first; the sparkline reads left to right in time.
	values := make([]float64, 0, len(a.data.Days))
	for i := len(a.data.Days) - 1; i >= 0; i-- {
		values = append(values, a.data.Days[i].CostRUB)
	}
	return fmt.Sprintf("  Cost, last %d days: %s\n", len(values), cli.RenderSparkline(values))
}

func totalEnergy(sum model.PeriodSummary) float64 {
	var total float64
	for _, loc := range sum.Locations {
		total += loc.TotalEnergyKWh
	}
	return total
}
