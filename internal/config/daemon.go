package config

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/privault/privault/internal/flagx"
)

// RelaydConfig holds runtime settings for the relay daemon.
type RelaydConfig struct {
	// NatsURL is the NATS server the daemon serves its subjects on.
	NatsURL string
	// DatabaseDSN is the PostgreSQL DSN; empty selects the in-memory store.
	DatabaseDSN string
	// TokenSecret signs device access tokens.
	TokenSecret string
}

// LoadDefaults populates c with sensible defaults.
func (c *RelaydConfig) LoadDefaults() {
	c.NatsURL = "nats://127.0.0.1:4222"
	c.DatabaseDSN = ""
	c.TokenSecret = ""
}

// JsonRelaydConfig is the JSON DTO for RelaydConfig.
type JsonRelaydConfig struct {
	NatsURL     string `json:"nats_url"`
	DatabaseDSN string `json:"database_dsn"`
	TokenSecret string `json:"token_secret"`
}

func parseRelaydJson(cfg *RelaydConfig) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonRelaydConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.NatsURL != "" {
		cfg.NatsURL = jc.NatsURL
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.TokenSecret != "" {
		cfg.TokenSecret = jc.TokenSecret
	}
}

// parseRelaydFlags populates RelaydConfig fields from command-line flags.
//
// Supported flags:
//
//	-n string   NATS address to serve on
//	-d string   PostgreSQL DSN (empty keeps the in-memory store)
//	-s string   token signing secret
func parseRelaydFlags(cfg *RelaydConfig) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-n", "-d", "-s"})

	fs := flag.NewFlagSet("relayd", flag.ContinueOnError)

	fs.StringVar(&cfg.NatsURL, "n", cfg.NatsURL, "nats address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "postgres dsn")
	fs.StringVar(&cfg.TokenSecret, "s", cfg.TokenSecret, "token signing secret")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// LoadRelaydConfig layers defaults, JSON and flags for the relay daemon.
func LoadRelaydConfig() *RelaydConfig {
	cfg := &RelaydConfig{}
	cfg.LoadDefaults()
	parseRelaydJson(cfg)
	parseRelaydFlags(cfg)
	return cfg
}
