package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device.Name != "BT05" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "BT05")
	}
	if cfg.Device.ServiceUUID != "FFE0" {
		t.Errorf("Device.ServiceUUID = %q, want %q", cfg.Device.ServiceUUID, "FFE0")
	}
	if cfg.Device.CharacteristicUUID != "FFE1" {
		t.Errorf("Device.CharacteristicUUID = %q, want %q", cfg.Device.CharacteristicUUID, "FFE1")
	}
	if cfg.Link.Transport != "ble" {
		t.Errorf("Link.Transport = %q, want %q", cfg.Link.Transport, "ble")
	}
	if !cfg.Link.AutoScan {
		t.Error("Link.AutoScan should default to true")
	}
	if cfg.Link.DiscoveryTimeout != 0 {
		t.Errorf("Link.DiscoveryTimeout = %v, want 0", cfg.Link.DiscoveryTimeout)
	}
	if cfg.Control.SampleInterval != 100*time.Millisecond {
		t.Errorf("Control.SampleInterval = %v, want 100ms", cfg.Control.SampleInterval)
	}
	if cfg.Tilt.Source != "osc" {
		t.Errorf("Tilt.Source = %q, want %q", cfg.Tilt.Source, "osc")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device:
  name: HMSoft
  service_uuid: 19b10000-e8f2-537e-4f6c-d104768a1214
  characteristic_uuid: 19b10001-e8f2-537e-4f6c-d104768a1214
link:
  transport: serial
  auto_scan: false
  discovery_timeout: 15s
  serial_port: /dev/ttyUSB1
  serial_baud: 115200
control:
  speed_step: 5
  sample_interval: 50ms
tilt:
  source: pointer
  max_angle: 45
  invert: true
keys:
  reverse: ["shift", "r"]
status:
  redis_addr: localhost:6379
  redis_key: board
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "HMSoft" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "HMSoft")
	}
	if cfg.Link.Transport != "serial" || cfg.Link.SerialPort != "/dev/ttyUSB1" || cfg.Link.SerialBaud != 115200 {
		t.Errorf("Link = %+v", cfg.Link)
	}
	if cfg.Link.AutoScan {
		t.Error("Link.AutoScan = true, want false")
	}
	if cfg.Link.DiscoveryTimeout != 15*time.Second {
		t.Errorf("Link.DiscoveryTimeout = %v, want 15s", cfg.Link.DiscoveryTimeout)
	}
	if cfg.Control.SpeedStep != 5 || cfg.Control.SampleInterval != 50*time.Millisecond {
		t.Errorf("Control = %+v", cfg.Control)
	}
	if cfg.Tilt.Source != "pointer" || cfg.Tilt.MaxAngle != 45 || !cfg.Tilt.Invert {
		t.Errorf("Tilt = %+v", cfg.Tilt)
	}
	if len(cfg.Keys.Reverse) != 2 || cfg.Keys.Reverse[0] != "shift" {
		t.Errorf("Keys.Reverse = %v, want [shift r]", cfg.Keys.Reverse)
	}
	// Unset keys keep their defaults.
	if len(cfg.Keys.Faster) != 1 || cfg.Keys.Faster[0] != "up" {
		t.Errorf("Keys.Faster = %v, want [up]", cfg.Keys.Faster)
	}
	if cfg.Status.RedisAddr != "localhost:6379" || cfg.Status.RedisKey != "board" {
		t.Errorf("Status = %+v", cfg.Status)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
link:
  serial_port: ~/dev/board
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "dev/board")
	if cfg.Link.SerialPort != expected {
		t.Errorf("Link.SerialPort = %q, want %q", cfg.Link.SerialPort, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("device: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty device name",
			modify:  func(c *Config) { c.Device.Name = "" },
			wantErr: true,
		},
		{
			name:    "bad service uuid",
			modify:  func(c *Config) { c.Device.ServiceUUID = "FFE" },
			wantErr: true,
		},
		{
			name:    "128-bit service uuid",
			modify:  func(c *Config) { c.Device.ServiceUUID = "19b10000-e8f2-537e-4f6c-d104768a1214" },
			wantErr: false,
		},
		{
			name:    "bad characteristic uuid",
			modify:  func(c *Config) { c.Device.CharacteristicUUID = "not-a-uuid" },
			wantErr: true,
		},
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.Link.Transport = "wifi" },
			wantErr: true,
		},
		{
			name:    "serial without port",
			modify:  func(c *Config) { c.Link.Transport = "serial" },
			wantErr: true,
		},
		{
			name: "serial with port",
			modify: func(c *Config) {
				c.Link.Transport = "serial"
				c.Link.SerialPort = "/dev/ttyUSB0"
			},
			wantErr: false,
		},
		{
			name: "serial zero baud",
			modify: func(c *Config) {
				c.Link.Transport = "serial"
				c.Link.SerialPort = "/dev/ttyUSB0"
				c.Link.SerialBaud = 0
			},
			wantErr: true,
		},
		{
			name:    "negative discovery timeout",
			modify:  func(c *Config) { c.Link.DiscoveryTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero speed step",
			modify:  func(c *Config) { c.Control.SpeedStep = 0 },
			wantErr: true,
		},
		{
			name:    "zero sample interval",
			modify:  func(c *Config) { c.Control.SampleInterval = 0 },
			wantErr: true,
		},
		{
			name:    "unknown tilt source",
			modify:  func(c *Config) { c.Tilt.Source = "gyro" },
			wantErr: true,
		},
		{
			name:    "osc path without slash",
			modify:  func(c *Config) { c.Tilt.OSCPath = "skate/pitch" },
			wantErr: true,
		},
		{
			name: "pointer zero max angle",
			modify: func(c *Config) {
				c.Tilt.Source = "pointer"
				c.Tilt.MaxAngle = 0
			},
			wantErr: true,
		},
		{
			name:    "no tilt",
			modify:  func(c *Config) { c.Tilt.Source = "none" },
			wantErr: false,
		},
		{
			name:    "empty key binding",
			modify:  func(c *Config) { c.Keys.Stop = nil },
			wantErr: true,
		},
		{
			name: "redis without key",
			modify: func(c *Config) {
				c.Status.RedisAddr = "localhost:6379"
				c.Status.RedisKey = ""
			},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTargetAndLinkOptions(t *testing.T) {
	cfg := Default()
	cfg.Link.DiscoveryTimeout = 8 * time.Second

	target := cfg.Target()
	if target.Name != "BT05" || target.ServiceUUID != "FFE0" || target.CharacteristicUUID != "FFE1" {
		t.Errorf("Target() = %+v", target)
	}
	opts := cfg.LinkOptions()
	if !opts.AutoScan || opts.DiscoveryTimeout != 8*time.Second {
		t.Errorf("LinkOptions() = %+v", opts)
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "skatectl", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# skatectl") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Device.Name != "BT05" {
		t.Errorf("written config Device.Name = %q, want %q", cfg.Device.Name, "BT05")
	}
	if cfg.Control.SampleInterval != 100*time.Millisecond {
		t.Errorf("written config Control.SampleInterval = %v, want 100ms", cfg.Control.SampleInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "skatectl")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("device:\n  name: custom\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
