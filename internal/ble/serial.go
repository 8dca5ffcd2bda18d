package ble

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// SerialCentral stands in for the radio when the board's UART is wired
// directly to the host: the configured port "advertises" as the target
// name, connecting opens it, and the service/characteristic resolve at once.
// The firmware reads the same single command bytes either way.
type SerialCentral struct {
	port       string
	deviceName string
	mode       *serial.Mode

	list func() ([]string, error)
	open func(name string, mode *serial.Mode) (io.WriteCloser, error)

	events chan Event

	mu       sync.Mutex
	scanning bool
	conn     io.WriteCloser
	connDev  Device
	pending  map[string]bool // open in flight; true once canceled
}

// NewSerialCentral creates a bench central for port at baud. The port is
// reported under deviceName so the Link's name filter applies unchanged.
func NewSerialCentral(port string, baud int, deviceName string) *SerialCentral {
	return &SerialCentral{
		port:       port,
		deviceName: deviceName,
		mode:       &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		list:       serial.GetPortsList,
		open: func(name string, mode *serial.Mode) (io.WriteCloser, error) {
			return serial.Open(name, mode)
		},
		events:  make(chan Event, 64),
		pending: make(map[string]bool),
	}
}

// Enable posts the initial RadioStateChanged.
func (c *SerialCentral) Enable() error {
	c.post(RadioStateChanged{State: c.State()})
	return nil
}

func (c *SerialCentral) State() RadioState {
	if c.port == "" {
		return RadioUnsupported
	}
	return RadioPoweredOn
}

// Scan lists the host's serial ports once and reports each as a device.
func (c *SerialCentral) Scan(_ string) error {
	ports, err := c.list()
	if err != nil {
		return fmt.Errorf("ble: list serial ports: %w", err)
	}
	c.mu.Lock()
	c.scanning = true
	c.mu.Unlock()

	for _, p := range ports {
		name := p
		if p == c.port {
			name = c.deviceName
		}
		select {
		case c.events <- Discovered{Device: Device{Name: name, Address: p}}:
		default:
			slog.Debug("[SERIAL] event queue full, dropping port", "port", p)
		}
	}
	return nil
}

func (c *SerialCentral) StopScan() error {
	c.mu.Lock()
	c.scanning = false
	c.mu.Unlock()
	return nil
}

func (c *SerialCentral) IsScanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanning
}

func (c *SerialCentral) Connect(dev Device) error {
	c.mu.Lock()
	c.pending[dev.Address] = false
	c.mu.Unlock()

	go func() {
		conn, err := c.open(dev.Address, c.mode)

		c.mu.Lock()
		canceled := c.pending[dev.Address]
		delete(c.pending, dev.Address)
		var prev io.WriteCloser
		if err == nil && !canceled {
			prev = c.conn
			c.conn, c.connDev = conn, dev
		}
		c.mu.Unlock()
		if prev != nil {
			prev.Close()
		}

		switch {
		case err != nil:
			c.post(Disconnected{Device: dev, Err: fmt.Errorf("ble: open %s: %w", dev.Address, err)})
		case canceled:
			conn.Close()
			c.post(Disconnected{Device: dev})
		default:
			slog.Info("[SERIAL] port open", "port", dev.Address, "baud", c.mode.BaudRate)
			c.post(Connected{Device: dev})
		}
	}()
	return nil
}

// CancelConnection closes the port. An open still in flight is closed as
// soon as it completes.
func (c *SerialCentral) CancelConnection(dev Device) error {
	c.mu.Lock()
	if _, ok := c.pending[dev.Address]; ok {
		c.pending[dev.Address] = true
		c.mu.Unlock()
		return nil
	}
	conn, held := c.conn, c.connDev
	if conn == nil || held.Address != dev.Address {
		c.mu.Unlock()
		return nil
	}
	c.conn = nil
	c.mu.Unlock()

	err := conn.Close()
	c.post(Disconnected{Device: held})
	if err != nil {
		return fmt.Errorf("ble: close %s: %w", dev.Address, err)
	}
	return nil
}

func (c *SerialCentral) DiscoverService(dev Device, serviceUUID string) error {
	c.post(ServiceFound{Device: dev, Service: serialService{uuid: serviceUUID}})
	return nil
}

func (c *SerialCentral) DiscoverCharacteristic(_ Service, charUUID string) error {
	c.mu.Lock()
	dev := c.connDev
	c.mu.Unlock()
	c.post(CharacteristicFound{Device: dev, Characteristic: &serialCharacteristic{
		uuid:    charUUID,
		central: c,
	}})
	return nil
}

func (c *SerialCentral) Events() <-chan Event {
	return c.events
}

// Close closes the port if open.
func (c *SerialCentral) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// post queues ev, handing off to a goroutine if the queue is full so the
// loop that drains Events never blocks on itself.
func (c *SerialCentral) post(ev Event) {
	select {
	case c.events <- ev:
	default:
		go func() { c.events <- ev }()
	}
}

var _ Central = (*SerialCentral)(nil)

type serialService struct {
	uuid string
}

func (s serialService) UUID() string { return s.uuid }

type serialCharacteristic struct {
	uuid    string
	central *SerialCentral
}

func (c *serialCharacteristic) UUID() string { return c.uuid }

func (c *serialCharacteristic) WriteWithoutResponse(data []byte) error {
	c.central.mu.Lock()
	conn := c.central.conn
	c.central.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("ble: serial port closed")
	}
	_, err := conn.Write(data)
	return err
}
