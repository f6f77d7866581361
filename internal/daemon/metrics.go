package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus instruments exported at /metrics.
type metrics struct {
	reg *prometheus.Registry

	devicePowerW  *prometheus.GaugeVec
	deviceOn      *prometheus.GaugeVec
	sessionsTotal prometheus.Counter
	energyTotal   prometheus.Counter
	costTotal     prometheus.Counter
	pollErrors    prometheus.Counter
	pollsTotal    prometheus.Counter
	quotaUsed     prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{reg: prometheus.NewRegistry()}

	m.devicePowerW = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wattmon_device_power_watts",
		Help: "Current power draw per device.",
	}, []string{"device"})
	m.deviceOn = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wattmon_device_on",
		Help: "Whether the device is currently on (1) or off (0).",
	}, []string{"device"})
	m.sessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wattmon_sessions_closed_total",
		Help: "Energy sessions closed since daemon start.",
	})
	m.energyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wattmon_session_energy_kwh_total",
		Help: "Energy attributed to closed sessions since daemon start.",
	})
	m.costTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wattmon_session_cost_rub_total",
		Help: "Cost attributed to closed sessions since daemon start.",
	})
	m.pollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wattmon_poll_errors_total",
		Help: "Device poll failures since daemon start.",
	})
	m.pollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wattmon_polls_total",
		Help: "Poll cycles since daemon start.",
	})
	m.quotaUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wattmon_api_quota_used",
		Help: "Cloud API requests spent against the daily quota.",
	})

	m.reg.MustRegister(
		m.devicePowerW, m.deviceOn, m.sessionsTotal, m.energyTotal,
		m.costTotal, m.pollErrors, m.pollsTotal, m.quotaUsed,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
