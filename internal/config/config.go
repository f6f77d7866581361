// Package config loads and validates wattmon configuration: devices,
// per-location tariff tables, telemetry API settings, and monitor knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"wattmon/internal/model"
)

// Config holds all wattmon configuration.
type Config struct {
	General   GeneralConfig                   `toml:"general"`
	Telemetry TelemetryConfig                 `toml:"telemetry"`
	Exchange  ExchangeConfig                  `toml:"exchange"`
	Forecast  ForecastConfig                  `toml:"forecast"`
	Devices   []DeviceConfig                  `toml:"devices"`
	Tariffs   map[string]model.LocationTariff `toml:"tariffs"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays     int    `toml:"default_days"`
	PollIntervalSec int    `toml:"poll_interval_sec"`
	DataDir         string `toml:"data_dir,omitempty"`
	DayStartHour    int    `toml:"day_start_hour"`
	DayEndHour      int    `toml:"day_end_hour"`
}

// TelemetryConfig holds smart-plug cloud API settings.
type TelemetryConfig struct {
	BaseURL           string `toml:"base_url,omitempty"`
	ClientID          string `toml:"client_id,omitempty"`
	ClientSecret      string `toml:"client_secret,omitempty"`
	MaxRequestsPerSec int    `toml:"max_requests_per_sec"`
	MaxRequestsPerDay int    `toml:"max_requests_per_day"`
	CacheTTLMin       int    `toml:"cache_ttl_min"`
}

// ExchangeConfig holds exchange-rate provider settings.
type ExchangeConfig struct {
	// DefaultRate is used when the live USDT/RUB rate is unavailable.
	DefaultRate float64 `toml:"default_rate"`
}

// ForecastConfig exposes the forecast heuristics as tunables.
type ForecastConfig struct {
	// HistoryWeight blends historical daily consumption against the
	// current-power estimate when they diverge by more than DivergencePct.
	HistoryWeight float64 `toml:"history_weight"`
	DivergencePct float64 `toml:"divergence_pct"`
	// DayRatio is the assumed day-zone share when no history exists.
	DayRatio float64 `toml:"day_ratio"`
	// EfficiencyKWhPerUSDT is the assumed energy cost of earning one USDT.
	EfficiencyKWhPerUSDT float64 `toml:"efficiency_kwh_per_usdt"`
}

// DeviceConfig describes one monitored smart plug.
type DeviceConfig struct {
	DeviceID string `toml:"device_id"`
	Name     string `toml:"name"`
	Location string `toml:"location"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays:     30,
			PollIntervalSec: 30,
			DayStartHour:    7,
			DayEndHour:      23,
		},
		Telemetry: TelemetryConfig{
			MaxRequestsPerSec: 500,
			MaxRequestsPerDay: 500_000,
			CacheTTLMin:       1,
		},
		Exchange: ExchangeConfig{DefaultRate: 80.0},
		Forecast: ForecastConfig{
			HistoryWeight:        0.7,
			DivergencePct:        30,
			DayRatio:             0.67,
			EfficiencyKWhPerUSDT: 0.5,
		},
		Tariffs: map[string]model.LocationTariff{},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wattmon")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "wattmon")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the directory holding the session database.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "wattmon")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Tariff tables are normalized after parsing; normalization defects are
// returned alongside the config so callers can report them without failing.
func Load() (Config, []string, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (Config, []string, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}
		return cfg, nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, nil, fmt.Errorf("parsing config: %w", err)
	}

	defects := NormalizeTariffs(cfg.Tariffs)
	return cfg, defects, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// TelemetryClientID returns the API client id from env var or config.
func TelemetryClientID(cfg Config) string {
	if id := os.Getenv("WATTMON_CLIENT_ID"); id != "" {
		return id
	}
	return cfg.Telemetry.ClientID
}

// TelemetryClientSecret returns the API secret from env var or config.
func TelemetryClientSecret(cfg Config) string {
	if key := os.Getenv("WATTMON_CLIENT_SECRET"); key != "" {
		return key
	}
	return cfg.Telemetry.ClientSecret
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
