package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
tool:
  binary: "/usr/local/bin/blueutil"
  command_timeout: 10
  resync_delay: 500
scan:
  duration: 8
display:
  max_devices: 10
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 8633
`
	configPath := writeConfig(t, content)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tool.Binary != "/usr/local/bin/blueutil" {
		t.Errorf("Tool.Binary = %q, want %q", cfg.Tool.Binary, "/usr/local/bin/blueutil")
	}

	if cfg.Display.MaxDevices != 10 {
		t.Errorf("Display.MaxDevices = %d, want 10", cfg.Display.MaxDevices)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if got := cfg.GetResyncDelay(); got != 500*time.Millisecond {
		t.Errorf("GetResyncDelay() = %v, want 500ms", got)
	}

	if got := cfg.GetScanDuration(); got != 8*time.Second {
		t.Errorf("GetScanDuration() = %v, want 8s", got)
	}
}

func TestGetHistoryRetention(t *testing.T) {
	cfg := Default()
	if got := cfg.GetHistoryRetention(); got != 90*24*time.Hour {
		t.Errorf("GetHistoryRetention() = %v, want 2160h", got)
	}

	cfg.Database.HistoryRetentionDays = 0
	if got := cfg.GetHistoryRetention(); got != 0 {
		t.Errorf("GetHistoryRetention() with retention disabled = %v, want 0", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "tool: [not: valid")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tool.Binary != "blueutil" {
		t.Errorf("Tool.Binary default = %q, want %q", cfg.Tool.Binary, "blueutil")
	}
	if cfg.Display.MaxDevices != 5 {
		t.Errorf("Display.MaxDevices default = %d, want 5", cfg.Display.MaxDevices)
	}
	if cfg.Scan.Duration != 5 {
		t.Errorf("Scan.Duration default = %d, want 5", cfg.Scan.Duration)
	}
	if cfg.Tool.ResyncDelay != 1000 {
		t.Errorf("Tool.ResyncDelay default = %d, want 1000", cfg.Tool.ResyncDelay)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level default = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
tool:
  binary: "blueutil"
database:
  path: "/tmp/test.db"
`)

	t.Setenv("EBLU_TOOL_BINARY", "/opt/bin/btctl")
	t.Setenv("EBLU_DATABASE_PATH", "/var/lib/eblu/devices.db")
	t.Setenv("EBLU_DISPLAY_MAX_DEVICES", "15")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tool.Binary != "/opt/bin/btctl" {
		t.Errorf("Tool.Binary = %q, want env override", cfg.Tool.Binary)
	}
	if cfg.Database.Path != "/var/lib/eblu/devices.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Display.MaxDevices != 15 {
		t.Errorf("Display.MaxDevices = %d, want 15", cfg.Display.MaxDevices)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing tool binary",
			mutate:  func(c *Config) { c.Tool.Binary = "" },
			wantErr: "tool.binary",
		},
		{
			name:    "zero command timeout",
			mutate:  func(c *Config) { c.Tool.CommandTimeout = 0 },
			wantErr: "tool.command_timeout",
		},
		{
			name:    "max devices too small",
			mutate:  func(c *Config) { c.Display.MaxDevices = 0 },
			wantErr: "display.max_devices",
		},
		{
			name:    "max devices too large",
			mutate:  func(c *Config) { c.Display.MaxDevices = 21 },
			wantErr: "display.max_devices",
		},
		{
			name:    "scan duration out of range",
			mutate:  func(c *Config) { c.Scan.Duration = 120 },
			wantErr: "scan.duration",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "negative history retention",
			mutate:  func(c *Config) { c.Database.HistoryRetentionDays = -1 },
			wantErr: "database.history_retention_days",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
