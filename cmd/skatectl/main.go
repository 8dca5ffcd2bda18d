package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/skatectl/internal/ble"
	"github.com/chaz8081/skatectl/internal/config"
	"github.com/chaz8081/skatectl/internal/control"
	"github.com/chaz8081/skatectl/internal/hotkey"
	"github.com/chaz8081/skatectl/internal/status"
	"github.com/chaz8081/skatectl/internal/tilt"
)

// central is a ble.Central the process owns.
type central interface {
	ble.Central
	Enable() error
	Close() error
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/skatectl/config.yaml)")
	initConfig := flag.Bool("init", false, "write the default config file and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			fmt.Println("Config already exists at", config.DefaultConfigPath())
			return
		}
		fmt.Println("Wrote", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	log.Println("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

// run wires the transport, inputs and status listeners, then drives the
// controller until a signal arrives.
func run(cfg *config.Config) error {
	c, err := newCentral(cfg)
	if err != nil {
		return fmt.Errorf("setting up %s transport: %w", cfg.Link.Transport, err)
	}
	defer c.Close()

	src, closeTilt, err := newTiltSource(cfg)
	if err != nil {
		return fmt.Errorf("starting tilt source: %w", err)
	}
	defer closeTilt()

	listeners := status.Fanout{status.NewLog(nil)}
	var observer control.CommandObserver
	if cfg.Status.RedisAddr != "" {
		r, err := status.NewRedis(cfg.Status.RedisAddr, cfg.Status.RedisPassword, cfg.Status.RedisDB, cfg.Status.RedisKey)
		if err != nil {
			log.Printf("WARNING: status mirror disabled: %v", err)
		} else {
			defer r.Close()
			listeners = append(listeners, r)
			observer = r
			log.Printf("Mirroring status to redis %s (key %q)", cfg.Status.RedisAddr, cfg.Status.RedisKey)
		}
	}

	ctrl := control.New(c, control.Options{
		Target:         cfg.Target(),
		Link:           cfg.LinkOptions(),
		SpeedStep:      cfg.Control.SpeedStep,
		SampleInterval: cfg.Control.SampleInterval,
		Tilt:           src,
		Listener:       listeners,
		Observer:       observer,
	})

	// Initialize hotkey listener
	keys := hotkey.NewListener(bindings(cfg.Keys))
	go keys.Start()

	if err := c.Enable(); err != nil {
		// The link reports the radio state; scanning starts once it powers on.
		log.Printf("WARNING: %v", err)
	}

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Ready! Ctrl+C to quit.")
	return ctrl.Run(ctx, keys.Actions())
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// bindings maps the configured key combos onto hotkey actions.
func bindings(k config.KeysConfig) hotkey.Bindings {
	return hotkey.Bindings{
		hotkey.ActionFaster:     k.Faster,
		hotkey.ActionSlower:     k.Slower,
		hotkey.ActionReverse:    k.Reverse,
		hotkey.ActionStop:       k.Stop,
		hotkey.ActionMotion:     k.Motion,
		hotkey.ActionConnect:    k.Connect,
		hotkey.ActionDisconnect: k.Disconnect,
	}
}

// newCentral builds the transport named by link.transport. Closing the
// central also closes its BlueZ radio.
func newCentral(cfg *config.Config) (central, error) {
	switch cfg.Link.Transport {
	case "serial":
		return ble.NewSerialCentral(cfg.Link.SerialPort, cfg.Link.SerialBaud, cfg.Device.Name), nil
	default:
		// BlueZ is only there on Linux; elsewhere Enable's result stands in
		// for the radio state.
		var radio ble.RadioProber
		if r, err := ble.NewBluezRadio(cfg.Link.Adapter); err == nil {
			radio = r
		} else {
			slog.Debug("[BLE] no BlueZ radio state", "error", err)
		}
		return ble.NewTinyGoCentral(radio), nil
	}
}

// newTiltSource builds the motion-mode input. The returned func releases it.
func newTiltSource(cfg *config.Config) (tilt.Source, func(), error) {
	var src tilt.Source
	closeFn := func() {}

	switch cfg.Tilt.Source {
	case "osc":
		o := tilt.NewOSC(cfg.Tilt.OSCAddr, cfg.Tilt.OSCPath)
		if err := o.Start(); err != nil {
			return nil, nil, err
		}
		src = o
		closeFn = func() { o.Close() }
	case "pointer":
		src = tilt.NewPointer(cfg.Tilt.MaxAngle)
	default:
		return nil, closeFn, nil
	}

	if cfg.Tilt.Invert {
		src = tilt.Invert(src)
	}
	return src, closeFn, nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== skatectl ===")
	fmt.Printf("  Device:  %s (service %s, char %s)\n", cfg.Device.Name, cfg.Device.ServiceUUID, cfg.Device.CharacteristicUUID)
	if cfg.Link.Transport == "serial" {
		fmt.Printf("  Link:    serial %s @ %d\n", cfg.Link.SerialPort, cfg.Link.SerialBaud)
	} else {
		fmt.Printf("  Link:    ble (%s, auto-scan %v)\n", cfg.Link.Adapter, cfg.Link.AutoScan)
	}
	fmt.Printf("  Tilt:    %s\n", cfg.Tilt.Source)
	fmt.Printf("  Keys:    %s\n", bindings(cfg.Keys).Describe())
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("================")
}
