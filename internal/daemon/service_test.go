package daemon

import (
	"math"
	"testing"
	"time"

	"wattmon/internal/model"
	"wattmon/internal/monitor"
)

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		DevicesOn:      1,
		TodayEnergyKWh: 10,
		TodayCostRUB:   48.2,
	}
	curr := Snapshot{
		DevicesOn:      2,
		TodayEnergyKWh: 12.5,
		TodayCostRUB:   60.3,
	}
	res := monitor.PollResult{Closed: []model.EnergySession{{EnergyKWh: 2.5}}}

	delta := diffSnapshots(prev, curr, res)
	if delta.DevicesOn != 1 {
		t.Fatalf("DevicesOn delta = %d, want 1", delta.DevicesOn)
	}
	if delta.SessionsClosed != 1 {
		t.Fatalf("SessionsClosed = %d, want 1", delta.SessionsClosed)
	}
	if math.Abs(delta.EnergyKWh-2.5) > 1e-9 {
		t.Fatalf("EnergyKWh delta = %.3f, want 2.5", delta.EnergyKWh)
	}
	if math.Abs(delta.CostRUB-12.1) > 1e-9 {
		t.Fatalf("CostRUB delta = %.3f, want 12.1", delta.CostRUB)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
}

func TestDeltaIsZero(t *testing.T) {
	if !(Delta{}).isZero() {
		t.Fatal("empty delta should be zero")
	}
	if (Delta{SessionsClosed: 1}).isZero() {
		t.Fatal("delta with a closed session should not be zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Interval: 10 * time.Second, EventsBuffer: 2}, Deps{})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

type stubHistory struct {
	sessions []model.EnergySession
}

func (s stubHistory) SessionsBetween(time.Time, time.Time) ([]model.EnergySession, error) {
	return s.sessions, nil
}

func TestBuildSnapshot(t *testing.T) {
	s := New(Config{}, Deps{
		History: stubHistory{sessions: []model.EnergySession{
			{EnergyKWh: 10, CostRUB: 48.2},
			{EnergyKWh: 5, CostRUB: 24.1},
		}},
	})

	res := monitor.PollResult{Readings: []model.DeviceReading{
		{DeviceID: "dev1", IsOn: true, PowerW: 450},
		{DeviceID: "dev2", IsOn: false},
	}}
	snap, err := s.buildSnapshot(res, time.Now())
	if err != nil {
		t.Fatalf("buildSnapshot: %v", err)
	}

	if snap.DevicesOn != 1 || snap.DevicesTotal != 2 {
		t.Fatalf("devices = %d/%d, want 1/2", snap.DevicesOn, snap.DevicesTotal)
	}
	if math.Abs(snap.TotalPowerW-450) > 1e-9 {
		t.Fatalf("TotalPowerW = %.1f, want 450", snap.TotalPowerW)
	}
	if snap.TodaySessions != 2 || math.Abs(snap.TodayCostRUB-72.3) > 1e-9 {
		t.Fatalf("today = %d sessions / %.2f RUB, want 2 / 72.30", snap.TodaySessions, snap.TodayCostRUB)
	}
}
