package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL        = "http://127.0.0.1:5000"
	defaultSessionTimeout = 10 * time.Minute
	defaultNoticeHold     = 4 * time.Second
	defaultCostPerKWh     = 8.0
	defaultCurrencySymbol = "₹"
	defaultTopicPrefix    = "billbuddy"
)

// Config holds the application configuration
type Config struct {
	API           APIConfig          `yaml:"api"`
	Session       SessionConfig      `yaml:"session,omitempty"`
	Notifications NotificationConfig `yaml:"notifications,omitempty"`
	Tariff        TariffConfig       `yaml:"tariff,omitempty"`
	Credentials   Credentials        `yaml:"credentials,omitempty"`
	Export        ExportConfig       `yaml:"export,omitempty"`
	MQTT          MQTTConfig         `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig           `yaml:"home_assistant,omitempty"`
	Log           LogConfig          `yaml:"log,omitempty"`
	Metrics       MetricsConfig      `yaml:"metrics,omitempty"`
}

// APIConfig points at the BillBuddy backend
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// SessionConfig controls the inactivity logout
type SessionConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"` // e.g. "10m"
}

// NotificationConfig controls how long banners stay on screen
type NotificationConfig struct {
	Hold time.Duration `yaml:"hold,omitempty"`
}

// TariffConfig mirrors the backend rate for display only. Keep it in sync by hand.
type TariffConfig struct {
	CostPerKWh     float64 `yaml:"cost_per_kwh,omitempty"`
	CurrencySymbol string  `yaml:"currency_symbol,omitempty"`
}

// Credentials are used by one-shot commands
type Credentials struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// ExportConfig controls report exports
type ExportConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	ChromePath string `yaml:"chrome_path,omitempty"`
}

// MQTTConfig holds MQTT broker configuration for publishing totals
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`       // e.g., "http://homeassistant.local:5050"
	Token    string `yaml:"token"`     // Long-lived access token
	EntityID string `yaml:"entity_id"` // e.g., "sensor.billbuddy_monthly_cost"
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`
}

// MetricsConfig controls the optional metrics endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9464"; empty disables it
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Credentials may live here
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetBaseURL returns the backend base URL without a trailing slash
func (c *Config) GetBaseURL() string {
	url := c.API.BaseURL
	if url == "" {
		url = defaultBaseURL
	}
	for len(url) > 0 && url[len(url)-1] == '/' {
		url = url[:len(url)-1]
	}
	return url
}

// GetSessionTimeout returns the inactivity timeout, 10 minutes by default
func (c *Config) GetSessionTimeout() time.Duration {
	if c.Session.Timeout <= 0 {
		return defaultSessionTimeout
	}
	return c.Session.Timeout
}

// GetNoticeHold returns how long a banner stays before fading
func (c *Config) GetNoticeHold() time.Duration {
	if c.Notifications.Hold <= 0 {
		return defaultNoticeHold
	}
	return c.Notifications.Hold
}

// GetCostPerKWh returns the display rate
func (c *Config) GetCostPerKWh() float64 {
	if c.Tariff.CostPerKWh <= 0 {
		return defaultCostPerKWh
	}
	return c.Tariff.CostPerKWh
}

// GetCurrencySymbol returns the currency symbol used in amounts
func (c *Config) GetCurrencySymbol() string {
	if c.Tariff.CurrencySymbol == "" {
		return defaultCurrencySymbol
	}
	return c.Tariff.CurrencySymbol
}

// GetExportDir returns the directory reports are written to
func (c *Config) GetExportDir() string {
	if c.Export.Dir == "" {
		return "."
	}
	return c.Export.Dir
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return defaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}
