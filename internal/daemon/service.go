// Package daemon provides the long-running background monitoring service:
// device polling, session persistence, rollups, and a local HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"wattmon/internal/model"
	"wattmon/internal/monitor"
	"wattmon/internal/telemetry"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	// ConfigPath, when set, is watched for changes; edits to the tariff or
	// device tables apply without a restart.
	ConfigPath string
}

// HistoryStore serves closed-session history for snapshots.
type HistoryStore interface {
	SessionsBetween(start, end time.Time) ([]model.EnergySession, error)
}

// Deps are the collaborators the service runs on.
type Deps struct {
	Monitor *monitor.Monitor
	History HistoryStore
	// Rollups is optional; nil disables scheduled summaries.
	Rollups *monitor.Rollups
	// Quota is optional; nil hides quota fields from status.
	Quota func() telemetry.QuotaStatus
	// Reload is optional; it reloads monitor options from ConfigPath.
	Reload func() (monitor.Options, []string, error)
}

// Snapshot is a compact monitoring state for status/event payloads.
type Snapshot struct {
	At             time.Time `json:"at"`
	DevicesOn      int       `json:"devices_on"`
	DevicesTotal   int       `json:"devices_total"`
	TotalPowerW    float64   `json:"total_power_w"`
	TodaySessions  int       `json:"today_sessions"`
	TodayEnergyKWh float64   `json:"today_energy_kwh"`
	TodayCostRUB   float64   `json:"today_cost_rub"`
	QuotaUsed      int       `json:"quota_used,omitempty"`
	QuotaRemaining int       `json:"quota_remaining,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	DevicesOn      int     `json:"devices_on"`
	SessionsClosed int     `json:"sessions_closed"`
	EnergyKWh      float64 `json:"energy_kwh"`
	CostRUB        float64 `json:"cost_rub"`
}

func (d Delta) isZero() bool {
	return d.DevicesOn == 0 && d.SessionsClosed == 0 && d.EnergyKWh == 0 && d.CostRUB == 0
}

// Event is emitted whenever the monitoring snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	deps    Deps
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config and collaborators.
func New(cfg Config, deps Deps) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8790"
	}

	return &Service{
		cfg:       cfg,
		deps:      deps,
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", s.metrics.handler())

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.cfg.ConfigPath != "" && s.deps.Reload != nil {
		go s.watchConfig(ctx)
	}

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	now := time.Now()
	res := s.deps.Monitor.PollOnce(ctx)
	if s.deps.Rollups != nil {
		s.deps.Rollups.Tick(ctx, now)
	}

	snap, err := s.buildSnapshot(res, now)
	s.observeMetrics(res)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	} else if len(res.Errors) > 0 {
		s.lastError = res.Errors[0].Error()
	}

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap, res)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: "monitor_delta", Timestamp: now, Snapshot: snap, Delta: delta}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) buildSnapshot(res monitor.PollResult, now time.Time) (Snapshot, error) {
	snap := Snapshot{At: now, DevicesTotal: len(res.Readings) + len(res.Errors)}
	for _, r := range res.Readings {
		if r.IsOn {
			snap.DevicesOn++
		}
		snap.TotalPowerW += r.PowerW
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sessions, err := s.deps.History.SessionsBetween(dayStart, now)
	if err != nil {
		return snap, fmt.Errorf("loading today's sessions: %w", err)
	}
	for _, sess := range sessions {
		snap.TodaySessions++
		snap.TodayEnergyKWh += sess.EnergyKWh
		snap.TodayCostRUB += sess.CostRUB
	}

	if s.deps.Quota != nil {
		q := s.deps.Quota()
		snap.QuotaUsed = q.Used
		snap.QuotaRemaining = q.Remaining
	}
	return snap, nil
}

func (s *Service) observeMetrics(res monitor.PollResult) {
	for _, r := range res.Readings {
		on := 0.0
		if r.IsOn {
			on = 1
		}
		s.metrics.deviceOn.WithLabelValues(r.DeviceID).Set(on)
		s.metrics.devicePowerW.WithLabelValues(r.DeviceID).Set(r.PowerW)
	}
	for _, sess := range res.Closed {
		s.metrics.sessionsTotal.Inc()
		s.metrics.energyTotal.Add(sess.EnergyKWh)
		s.metrics.costTotal.Add(sess.CostRUB)
	}
	s.metrics.pollErrors.Add(float64(len(res.Errors)))
	s.metrics.pollsTotal.Inc()
	if s.deps.Quota != nil {
		s.metrics.quotaUsed.Set(float64(s.deps.Quota().Used))
	}
}

func diffSnapshots(prev, curr Snapshot, res monitor.PollResult) Delta {
	return Delta{
		DevicesOn:      curr.DevicesOn - prev.DevicesOn,
		SessionsClosed: len(res.Closed),
		EnergyKWh:      curr.TodayEnergyKWh - prev.TodayEnergyKWh,
		CostRUB:        curr.TodayCostRUB - prev.TodayCostRUB,
	}
}

// watchConfig applies config edits without a restart.
func (s *Service) watchConfig(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("daemon: config watch unavailable: %v", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors replace the file, which would orphan a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.cfg.ConfigPath)); err != nil {
		log.Printf("daemon: watching config dir: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Name != s.cfg.ConfigPath || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			opts, defects, err := s.deps.Reload()
			if err != nil {
				log.Printf("daemon: config reload failed: %v", err)
				continue
			}
			for _, d := range defects {
				log.Printf("daemon: config defect: %s", d)
			}
			s.deps.Monitor.SetOptions(opts)
			log.Printf("daemon: config reloaded (%d devices)", len(opts.Devices))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("daemon: config watch error: %v", err)
		}
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
