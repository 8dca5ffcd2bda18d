package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/skatectl/internal/ble"
)

// Config holds all application configuration.
type Config struct {
	Device   DeviceConfig  `yaml:"device"`
	Link     LinkConfig    `yaml:"link"`
	Control  ControlConfig `yaml:"control"`
	Tilt     TiltConfig    `yaml:"tilt"`
	Keys     KeysConfig    `yaml:"keys"`
	Status   StatusConfig  `yaml:"status"`
	LogLevel string        `yaml:"log_level"`
}

// DeviceConfig identifies the board's BLE bridge.
type DeviceConfig struct {
	Name               string `yaml:"name"`
	ServiceUUID        string `yaml:"service_uuid"`
	CharacteristicUUID string `yaml:"characteristic_uuid"`
}

// LinkConfig selects and tunes the transport.
type LinkConfig struct {
	Transport        string        `yaml:"transport"` // "ble" or "serial"
	Adapter          string        `yaml:"adapter"`   // BlueZ adapter, e.g. "hci0"
	AutoScan         bool          `yaml:"auto_scan"`
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"` // 0 disables
	SerialPort       string        `yaml:"serial_port"`
	SerialBaud       int           `yaml:"serial_baud"`
}

// ControlConfig holds slider and sampling settings.
type ControlConfig struct {
	SpeedStep      int           `yaml:"speed_step"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// TiltConfig selects the motion-mode input.
type TiltConfig struct {
	Source   string  `yaml:"source"` // "osc", "pointer" or "none"
	OSCAddr  string  `yaml:"osc_addr"`
	OSCPath  string  `yaml:"osc_path"`
	MaxAngle float64 `yaml:"max_angle"`
	Invert   bool    `yaml:"invert"`
}

// KeysConfig maps actions to key combos.
type KeysConfig struct {
	Faster     []string `yaml:"faster"`
	Slower     []string `yaml:"slower"`
	Reverse    []string `yaml:"reverse"`
	Stop       []string `yaml:"stop"`
	Motion     []string `yaml:"motion"`
	Connect    []string `yaml:"connect"`
	Disconnect []string `yaml:"disconnect"`
}

// StatusConfig configures the optional redis status mirror.
type StatusConfig struct {
	RedisAddr     string `yaml:"redis_addr"` // empty disables
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "skatectl")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:               ble.DefaultDeviceName,
			ServiceUUID:        ble.DefaultServiceUUID,
			CharacteristicUUID: ble.DefaultCharacteristicUUID,
		},
		Link: LinkConfig{
			Transport:  "ble",
			Adapter:    "hci0",
			AutoScan:   true,
			SerialBaud: 9600,
		},
		Control: ControlConfig{
			SpeedStep:      10,
			SampleInterval: 100 * time.Millisecond,
		},
		Tilt: TiltConfig{
			Source:   "osc",
			OSCAddr:  "0.0.0.0:8000",
			OSCPath:  "/skate/pitch",
			MaxAngle: 90,
		},
		Keys: KeysConfig{
			Faster:     []string{"up"},
			Slower:     []string{"down"},
			Reverse:    []string{"r"},
			Stop:       []string{"space"},
			Motion:     []string{"m"},
			Connect:    []string{"c"},
			Disconnect: []string{"x"},
		},
		Status: StatusConfig{
			RedisKey: "skateboard",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in serial_port is expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Link.SerialPort = expandTilde(cfg.Link.SerialPort)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return errors.New("device.name must not be empty")
	}
	if _, err := ble.ParseUUID(c.Device.ServiceUUID); err != nil {
		return fmt.Errorf("device.service_uuid: %w", err)
	}
	if _, err := ble.ParseUUID(c.Device.CharacteristicUUID); err != nil {
		return fmt.Errorf("device.characteristic_uuid: %w", err)
	}

	switch c.Link.Transport {
	case "ble":
	case "serial":
		if c.Link.SerialPort == "" {
			return errors.New("link.serial_port must be set when link.transport is \"serial\"")
		}
		if c.Link.SerialBaud <= 0 {
			return errors.New("link.serial_baud must be > 0")
		}
	default:
		return fmt.Errorf("link.transport must be \"ble\" or \"serial\", got %q", c.Link.Transport)
	}

	if c.Link.DiscoveryTimeout < 0 {
		return errors.New("link.discovery_timeout must not be negative")
	}

	if c.Control.SpeedStep <= 0 || c.Control.SpeedStep > 100 {
		return fmt.Errorf("control.speed_step must be in 1..100, got %d", c.Control.SpeedStep)
	}
	if c.Control.SampleInterval <= 0 {
		return errors.New("control.sample_interval must be > 0")
	}

	switch c.Tilt.Source {
	case "none":
	case "osc":
		if c.Tilt.OSCAddr == "" || !strings.HasPrefix(c.Tilt.OSCPath, "/") {
			return fmt.Errorf("tilt.osc_addr must be set and tilt.osc_path must start with \"/\", got %q %q", c.Tilt.OSCAddr, c.Tilt.OSCPath)
		}
	case "pointer":
		if c.Tilt.MaxAngle <= 0 {
			return errors.New("tilt.max_angle must be > 0")
		}
	default:
		return fmt.Errorf("tilt.source must be \"osc\", \"pointer\" or \"none\", got %q", c.Tilt.Source)
	}

	for name, keys := range map[string][]string{
		"faster":     c.Keys.Faster,
		"slower":     c.Keys.Slower,
		"reverse":    c.Keys.Reverse,
		"stop":       c.Keys.Stop,
		"motion":     c.Keys.Motion,
		"connect":    c.Keys.Connect,
		"disconnect": c.Keys.Disconnect,
	} {
		if len(keys) == 0 {
			return fmt.Errorf("keys.%s must not be empty", name)
		}
	}

	if c.Status.RedisAddr != "" && c.Status.RedisKey == "" {
		return errors.New("status.redis_key must be set when status.redis_addr is")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Target returns the BLE identity the link resolves.
func (c *Config) Target() ble.Target {
	return ble.Target{
		Name:               c.Device.Name,
		ServiceUUID:        c.Device.ServiceUUID,
		CharacteristicUUID: c.Device.CharacteristicUUID,
	}
}

// LinkOptions returns the link tuning.
func (c *Config) LinkOptions() ble.LinkOptions {
	return ble.LinkOptions{
		AutoScan:         c.Link.AutoScan,
		DiscoveryTimeout: c.Link.DiscoveryTimeout,
	}
}

// ParseLogLevel maps a log_level string to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# skatectl configuration
# transport: "ble" scans for device.name; "serial" writes to link.serial_port.
# tilt.source: "osc" (phone sensor app), "pointer" (mouse) or "none".
`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// ("", nil) without touching anything if the file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
