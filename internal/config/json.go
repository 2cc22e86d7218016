package config

import (
	"encoding/json"
	"os"

	"github.com/privault/privault/internal/flagx"
	"github.com/privault/privault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30m"
// or as integer nanoseconds. After parsing, values are copied into the runtime
// Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN        string         `json:"database_dsn"`
	RelayURL           string         `json:"relay_url"`
	RelayTimeout       timex.Duration `json:"relay_timeout"`
	MinPINLength       int            `json:"min_pin_length"`
	MaxAttempts        int            `json:"max_attempts"`
	LockoutDuration    timex.Duration `json:"lockout_duration"`
	IdleTimeout        timex.Duration `json:"idle_timeout"`
	DeviceInfo         string         `json:"device_info"`
	IntrusionRetention timex.Duration `json:"intrusion_retention"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// the -c/-config flag. Absent file path means no JSON layer. Read or
// unmarshal errors panic; the caller decides whether to recover.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.RelayURL != "" {
		cfg.RelayURL = jc.RelayURL
	}
	if jc.RelayTimeout.Std() != 0 {
		cfg.RelayTimeout = jc.RelayTimeout.Std()
	}
	if jc.MinPINLength != 0 {
		cfg.MinPINLength = jc.MinPINLength
	}
	if jc.MaxAttempts != 0 {
		cfg.MaxAttempts = jc.MaxAttempts
	}
	if jc.LockoutDuration.Std() != 0 {
		cfg.LockoutDuration = jc.LockoutDuration.Std()
	}
	if jc.IdleTimeout.Std() != 0 {
		cfg.IdleTimeout = jc.IdleTimeout.Std()
	}
	if jc.DeviceInfo != "" {
		cfg.DeviceInfo = jc.DeviceInfo
	}
	if jc.IntrusionRetention.Std() != 0 {
		cfg.IntrusionRetention = jc.IntrusionRetention.Std()
	}
}
