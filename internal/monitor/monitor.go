// Package monitor tracks smart-plug on/off transitions and turns each
// contiguous on-interval into a costed energy session.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"wattmon/internal/config"
	"wattmon/internal/model"
	"wattmon/internal/tariff"
)

// Reader fetches current device readings.
type Reader interface {
	DeviceReading(ctx context.Context, deviceID string) (model.DeviceReading, error)
}

// Store persists closed sessions and serves the monthly consumption baseline.
type Store interface {
	AppendSession(sess *model.EnergySession) error
	MonthlyBaseline(deviceID string, monthStart, before time.Time) (float64, error)
}

// Options configures the monitor.
type Options struct {
	Devices      []config.DeviceConfig
	Tariffs      map[string]model.LocationTariff
	DayStartHour int
	DayEndHour   int
}

// Monitor polls devices and maintains per-device session state. A session
// opens on an off-to-on transition and closes (and is costed and persisted)
// on the next on-to-off transition.
type Monitor struct {
	opts   Options
	reader Reader
	store  Store

	mu     sync.Mutex
	states map[string]*deviceState
}

type deviceState struct {
	known        bool
	isOn         bool
	sessionStart time.Time
	startCounter float64
	last         model.DeviceReading
}

// PollResult is the outcome of one poll cycle.
type PollResult struct {
	Readings []model.DeviceReading
	Closed   []model.EnergySession
	Errors   []error
}

// New creates a monitor over the configured devices.
func New(opts Options, reader Reader, store Store) *Monitor {
	if opts.DayEndHour <= opts.DayStartHour {
		opts.DayStartHour = tariff.DefaultDayStartHour
		opts.DayEndHour = tariff.DefaultDayEndHour
	}
	return &Monitor{
		opts:   opts,
		reader: reader,
		store:  store,
		states: make(map[string]*deviceState),
	}
}

// SetOptions swaps device and tariff configuration in place, keeping open
// session state. Used for config hot reload.
func (m *Monitor) SetOptions(opts Options) {
	if opts.DayEndHour <= opts.DayStartHour {
		opts.DayStartHour = tariff.DefaultDayStartHour
		opts.DayEndHour = tariff.DefaultDayEndHour
	}
	m.mu.Lock()
	m.opts = opts
	m.mu.Unlock()
}

// PollOnce reads every configured device once and applies state transitions.
// Per-device failures are collected, not fatal: one unreachable plug must not
// stall the others.
func (m *Monitor) PollOnce(ctx context.Context) PollResult {
	m.mu.Lock()
	opts := m.opts
	m.mu.Unlock()

	var result PollResult
	for _, dev := range opts.Devices {
		reading, err := m.reader.DeviceReading(ctx, dev.DeviceID)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Readings = append(result.Readings, reading)

		if sess, ok := m.apply(opts, dev, reading); ok {
			result.Closed = append(result.Closed, sess)
		}
	}
	return result
}

// Current returns the most recent reading per device id.
func (m *Monitor) Current() map[string]model.DeviceReading {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]model.DeviceReading, len(m.states))
	for id, st := range m.states {
		if st.known {
			out[id] = st.last
		}
	}
	return out
}

func (m *Monitor) apply(opts Options, dev config.DeviceConfig, r model.DeviceReading) (model.EnergySession, bool) {
	m.mu.Lock()
	st, ok := m.states[dev.DeviceID]
	if !ok {
		st = &deviceState{}
		m.states[dev.DeviceID] = st
	}

	var (
		closed    model.EnergySession
		hasClosed bool
	)

	switch {
	case !st.known:
		// First observation. A device already running starts a session now;
		// energy drawn before the monitor came up is not attributable.
		if r.IsOn {
			st.sessionStart = r.At
			st.startCounter = r.CounterKWh
			log.Printf("monitor: %s (%s) already on, session opened at first poll", dev.DeviceID, dev.Name)
		}
	case !st.isOn && r.IsOn:
		st.sessionStart = r.At
		st.startCounter = r.CounterKWh
		log.Printf("monitor: %s (%s) switched on", dev.DeviceID, dev.Name)
	case st.isOn && !r.IsOn:
		start := st.sessionStart
		startCounter := st.startCounter
		m.mu.Unlock()

		closed, hasClosed = m.closeSession(opts, dev, start, startCounter, r)

		m.mu.Lock()
	}

	st.known = true
	st.isOn = r.IsOn
	st.last = r
	m.mu.Unlock()

	return closed, hasClosed
}

// closeSession costs and persists a finished on-interval.
func (m *Monitor) closeSession(opts Options, dev config.DeviceConfig, start time.Time, startCounter float64, r model.DeviceReading) (model.EnergySession, bool) {
	delta := r.CounterKWh - startCounter
	if delta < 0 {
		// Counter reset mid-session (firmware reboot). The true energy is
		// unknowable, so the session is dropped.
		log.Printf("monitor: %s counter went backwards (%.3f -> %.3f), dropping session",
			dev.DeviceID, startCounter, r.CounterKWh)
		return model.EnergySession{}, false
	}

	dayHours, nightHours := tariff.SplitZones(start, r.At, opts.DayStartHour, opts.DayEndHour)

	monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	baseline, err := m.store.MonthlyBaseline(dev.DeviceID, monthStart, start)
	useFallback := err != nil
	if err != nil {
		log.Printf("monitor: %s monthly baseline unavailable (%v), using fallback tariff", dev.DeviceID, err)
	}

	ranges := config.TariffRanges(opts.Tariffs, dev.Location, useFallback)
	tariffType := config.TariffType(opts.Tariffs, dev.Location)
	alloc := tariff.Allocate(dayHours, nightHours, delta, baseline, ranges, tariffType, useFallback)

	sess := model.EnergySession{
		DeviceID:       dev.DeviceID,
		DeviceName:     dev.Name,
		Location:       dev.Location,
		StartTime:      start,
		EndTime:        r.At,
		EnergyKWh:      delta,
		CostRUB:        alloc.CostRUB,
		TariffType:     alloc.TariffType,
		DayEnergyKWh:   alloc.DayEnergyKWh,
		NightEnergyKWh: alloc.NightEnergyKWh,
		CostDetail:     alloc.Detail,
	}

	if err := m.store.AppendSession(&sess); err != nil {
		log.Printf("monitor: persisting session for %s failed: %v", dev.DeviceID, err)
		return sess, true
	}
	log.Printf("monitor: %s session closed: %.3f kWh, %.2f RUB (%.1fh day, %.1fh night)",
		dev.DeviceID, delta, alloc.CostRUB, dayHours, nightHours)
	return sess, true
}
