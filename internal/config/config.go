// Package config loads runtime settings for the vault CLI and the relay
// daemon. Precedence is defaults, then a JSON file (-c/-config), then
// command-line flags.
package config

import "time"

// Config holds runtime settings for the vault CLI.
//
// Units: durations are time.Duration (e.g. 30*time.Minute).
type Config struct {
	// DatabaseDSN is the SQLite file backing the local store.
	DatabaseDSN string
	// RelayURL is the NATS address of the relay; empty disables the relay.
	RelayURL string
	// RelayTimeout bounds every relay round-trip.
	RelayTimeout time.Duration

	MinPINLength    int
	MaxAttempts     int
	LockoutDuration time.Duration
	IdleTimeout     time.Duration

	// DeviceInfo is a free-form device description stored in intrusion logs.
	DeviceInfo string
	// IntrusionRetention is how long intrusion entries are kept.
	IntrusionRetention time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "privault.db"
	c.RelayURL = ""
	c.RelayTimeout = 5 * time.Second
	c.MinPINLength = 4
	c.MaxAttempts = 5
	c.LockoutDuration = 30 * time.Minute
	c.IdleTimeout = 5 * time.Minute
	c.DeviceInfo = ""
	c.IntrusionRetention = 90 * 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
