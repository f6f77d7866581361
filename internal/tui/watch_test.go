package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wattmon/internal/model"
)

func testFetch(context.Context) Data {
	return Data{
		At: time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC),
		Devices: []DeviceRow{
			{Name: "rig-1", Location: "garage", On: true, PowerW: 450, HasPower: true},
		},
		Today: model.PeriodSummary{SessionCount: 2, TotalCostRUB: 48.2},
	}
}

func TestUpdate_QuitKeys(t *testing.T) {
	a := New(testFetch, time.Second)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command for q")
	}
}

func TestView_ShowsDevicesAfterLoad(t *testing.T) {
	a := New(testFetch, time.Second)
	if !strings.Contains(a.View(), "loading") {
		t.Fatal("expected loading view before first fetch")
	}

	updated, _ := a.Update(dataMsg(testFetch(context.Background())))
	view := updated.View()
	if !strings.Contains(view, "rig-1") {
		t.Fatalf("view missing device row:\n%s", view)
	}
	if !strings.Contains(view, "450 W") {
		t.Fatalf("view missing power reading:\n%s", view)
	}
}
