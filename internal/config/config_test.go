package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", cfg.GetBaseURL())
	assert.Equal(t, 10*time.Minute, cfg.GetSessionTimeout())
	assert.Equal(t, 4*time.Second, cfg.GetNoticeHold())
	assert.Equal(t, 8.0, cfg.GetCostPerKWh())
	assert.Equal(t, "₹", cfg.GetCurrencySymbol())
	assert.Equal(t, ".", cfg.GetExportDir())
	assert.Equal(t, "billbuddy", cfg.GetTopicPrefix())
}

func TestLoad_ParsesDurationsAndTrimsBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
api:
  base_url: http://billing.local:8080/
session:
  timeout: 90s
tariff:
  cost_per_kwh: 9.5
mqtt:
  enabled: true
  broker: broker.local:1883
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://billing.local:8080", cfg.GetBaseURL())
	assert.Equal(t, 90*time.Second, cfg.GetSessionTimeout())
	assert.Equal(t, 9.5, cfg.GetCostPerKWh())
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local:1883", cfg.MQTT.Broker)
}

func TestSave_RoundTripsCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{Credentials: Credentials{Username: "amy@x.com"}}

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "amy@x.com", loaded.Credentials.Username)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}
