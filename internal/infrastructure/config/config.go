package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Display limits for the empty-query device list.
const (
	minMaxDevices = 1
	maxMaxDevices = 20
)

// Scan duration bounds in seconds.
const (
	minScanDuration = 1
	maxScanDuration = 60
)

// Config is the root configuration structure for eblu.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Tool      ToolConfig      `yaml:"tool"`
	Scan      ScanConfig      `yaml:"scan"`
	Display   DisplayConfig   `yaml:"display"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ToolConfig contains settings for the external Bluetooth control utility.
type ToolConfig struct {
	// Binary is the path or name of the blueutil-compatible executable.
	// A bare name is resolved via PATH at startup.
	Binary string `yaml:"binary"`

	// CommandTimeout is the maximum time in seconds a single tool
	// invocation may run before it is killed.
	CommandTimeout int `yaml:"command_timeout"`

	// ResyncDelay is the delay in milliseconds between a mutating action
	// (connect/disconnect) and the follow-up snapshot re-fetch that
	// confirms its real effect.
	ResyncDelay int `yaml:"resync_delay"`
}

// ScanConfig contains discovery scan settings.
type ScanConfig struct {
	// Duration is the inquiry scan length in seconds.
	Duration int `yaml:"duration"`
}

// DisplayConfig contains settings consumed by presentation layers.
type DisplayConfig struct {
	// MaxDevices bounds the device list shown for an empty search query.
	// Valid range: 1-20.
	MaxDevices int `yaml:"max_devices"`
}

// RefreshConfig contains periodic snapshot refresh settings.
type RefreshConfig struct {
	// Interval is the seconds between automatic refreshes. 0 disables
	// the timer; refreshes then happen only on demand.
	Interval int `yaml:"interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays is how long connection history rows are kept
	// before the daily sweep deletes them. Zero disables pruning.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: EBLU_SECTION_KEY
// For example: EBLU_TOOL_BINARY, EBLU_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Tool: ToolConfig{
			Binary:         "blueutil",
			CommandTimeout: 15,
			ResyncDelay:    1000,
		},
		Scan: ScanConfig{
			Duration: 5,
		},
		Display: DisplayConfig{
			MaxDevices: 5,
		},
		Refresh: RefreshConfig{
			Interval: 30,
		},
		Database: DatabaseConfig{
			Path:                 "./data/eblu.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "eblu",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8633,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: EBLU_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Tool
	if v := os.Getenv("EBLU_TOOL_BINARY"); v != "" {
		cfg.Tool.Binary = v
	}

	// Display
	if v := os.Getenv("EBLU_DISPLAY_MAX_DEVICES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Display.MaxDevices = n
		}
	}

	// Database
	if v := os.Getenv("EBLU_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("EBLU_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("EBLU_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("EBLU_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("EBLU_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("EBLU_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Tool.Binary == "" {
		errs = append(errs, "tool.binary is required")
	}
	if c.Tool.CommandTimeout <= 0 {
		errs = append(errs, "tool.command_timeout must be positive")
	}
	if c.Tool.ResyncDelay < 0 {
		errs = append(errs, "tool.resync_delay must not be negative")
	}

	if c.Scan.Duration < minScanDuration || c.Scan.Duration > maxScanDuration {
		errs = append(errs, fmt.Sprintf("scan.duration must be between %d and %d seconds", minScanDuration, maxScanDuration))
	}

	if c.Display.MaxDevices < minMaxDevices || c.Display.MaxDevices > maxMaxDevices {
		errs = append(errs, fmt.Sprintf("display.max_devices must be between %d and %d", minMaxDevices, maxMaxDevices))
	}

	if c.Refresh.Interval < 0 {
		errs = append(errs, "refresh.interval must not be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.HistoryRetentionDays < 0 {
		errs = append(errs, "database.history_retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetCommandTimeout returns the tool command timeout as a Duration.
func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Tool.CommandTimeout) * time.Second
}

// GetResyncDelay returns the post-action resync delay as a Duration.
func (c *Config) GetResyncDelay() time.Duration {
	return time.Duration(c.Tool.ResyncDelay) * time.Millisecond
}

// GetScanDuration returns the discovery scan duration as a Duration.
func (c *Config) GetScanDuration() time.Duration {
	return time.Duration(c.Scan.Duration) * time.Second
}

// GetRefreshInterval returns the periodic refresh interval as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Refresh.Interval) * time.Second
}

// GetHistoryRetention returns the connection history retention window
// as a Duration. Zero means pruning is disabled.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Database.HistoryRetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
