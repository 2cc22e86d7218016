package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "privault.db", c.DatabaseDSN)
	assert.Empty(t, c.RelayURL)
	assert.Equal(t, 5*time.Second, c.RelayTimeout)
	assert.Equal(t, 4, c.MinPINLength)
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 30*time.Minute, c.LockoutDuration)
	assert.Equal(t, 5*time.Minute, c.IdleTimeout)
	assert.Equal(t, 90*24*time.Hour, c.IntrusionRetention)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "privault.db", cfg.DatabaseDSN)
	assert.Equal(t, 5*time.Second, cfg.RelayTimeout)
}
