// Command test-link is a manual test for the board link.
// It scans for the configured device, waits until the characteristic is
// resolved, sends a stop (0) and disconnects.
//
// Usage:
//
//	go run ./cmd/test-link [--serial /dev/ttyUSB0] [--name BT05] [--timeout 30s]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chaz8081/skatectl/internal/ble"
)

// printListener prints link notifications and signals readiness.
type printListener struct {
	ready chan struct{}
}

func (p printListener) OnStatus(text string) { fmt.Println("  ", text) }
func (p printListener) OnReady()             { close(p.ready) }
func (p printListener) OnNotReady()          { fmt.Println("   (not ready)") }

func main() {
	name := flag.String("name", ble.DefaultDeviceName, "advertised device name")
	serialPort := flag.String("serial", "", "use a serial port instead of BLE")
	baud := flag.Int("baud", 9600, "serial baud rate")
	timeout := flag.Duration("timeout", 30*time.Second, "give up after this long")
	flag.Parse()

	var central interface {
		ble.Central
		Enable() error
		Close() error
	}
	if *serialPort != "" {
		central = ble.NewSerialCentral(*serialPort, *baud, *name)
	} else {
		var radio ble.RadioProber
		if r, err := ble.NewBluezRadio(""); err == nil {
			radio = r
		}
		central = ble.NewTinyGoCentral(radio)
	}
	defer central.Close()

	target := ble.DefaultTarget()
	target.Name = *name
	lis := printListener{ready: make(chan struct{})}
	link := ble.NewLink(central, target, lis, ble.LinkOptions{
		AutoScan:         true,
		DiscoveryTimeout: 10 * time.Second,
	})

	fmt.Printf("Looking for %q (timeout %s)...\n", *name, *timeout)
	if err := central.Enable(); err != nil {
		fmt.Printf("Error: %v\n", err)
	}

	deadline := time.After(*timeout)
	for {
		select {
		case ev := <-central.Events():
			link.Handle(ev)
		case ev := <-link.Timeouts():
			link.Handle(ev)
		case <-lis.ready:
			fmt.Println("Sending stop (0)...")
			link.SendCommand(0)
			link.CancelScanning()
			fmt.Println("\nDone!")
			return
		case <-deadline:
			link.CancelScanning()
			fmt.Println("Timed out.")
			os.Exit(1)
		}
	}
}
