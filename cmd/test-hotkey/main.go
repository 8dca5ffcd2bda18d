// Command test-hotkey is a manual test for the global key bindings.
// Run it, then press the bound keys to see actions.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--config path]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/skatectl/internal/config"
	"github.com/chaz8081/skatectl/internal/hotkey"
)

func main() {
	configPath := flag.String("config", "", "config file to read bindings from (default: built-in)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	bindings := hotkey.Bindings{
		hotkey.ActionFaster:     cfg.Keys.Faster,
		hotkey.ActionSlower:     cfg.Keys.Slower,
		hotkey.ActionReverse:    cfg.Keys.Reverse,
		hotkey.ActionStop:       cfg.Keys.Stop,
		hotkey.ActionMotion:     cfg.Keys.Motion,
		hotkey.ActionConnect:    cfg.Keys.Connect,
		hotkey.ActionDisconnect: cfg.Keys.Disconnect,
	}
	fmt.Printf("Listening for %s ...\n", bindings.Describe())
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(bindings)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read actions
	go func() {
		for a := range listener.Actions() {
			fmt.Printf(">>> %s\n", a)
		}
		fmt.Println("Action channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
