package ble

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"tinygo.org/x/bluetooth"
)

// TinyGoCentral wraps tinygo-org/bluetooth. tinygo's blocking calls run on
// their own goroutines and report back as Events.
// On macOS, addresses are CoreBluetooth UUIDs rather than MAC addresses.
type TinyGoCentral struct {
	adapter *bluetooth.Adapter
	scanner scanner
	radio   RadioProber

	events chan Event
	done   chan struct{}

	enabled  atomic.Bool
	scanning atomic.Bool

	// mu protects scanDone, seen, pending and conns.
	mu       sync.Mutex
	scanDone chan struct{} // closed when the latest scan goroutine exits
	seen    map[string]bluetooth.Address // keyed by address string
	pending map[string]bool              // connect in flight; true once canceled
	conns   map[string]*tinygoConn
}

// scanner is the part of *bluetooth.Adapter that scanning uses.
type scanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

type tinygoConn struct {
	info   Device
	device bluetooth.Device
}

// NewTinyGoCentral creates a central on the default adapter. radio may be
// nil, in which case a successful Enable counts as powered-on. The central
// takes ownership of radio and closes it in Close if it is an io.Closer.
func NewTinyGoCentral(radio RadioProber) *TinyGoCentral {
	return &TinyGoCentral{
		adapter: bluetooth.DefaultAdapter,
		scanner: bluetooth.DefaultAdapter,
		radio:   radio,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		seen:    make(map[string]bluetooth.Address),
		pending: make(map[string]bool),
		conns:   make(map[string]*tinygoConn),
	}
}

// Enable powers up the BLE stack and posts the initial RadioStateChanged.
func (c *TinyGoCentral) Enable() error {
	if err := c.adapter.Enable(); err != nil {
		c.post(RadioStateChanged{State: c.State()})
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	c.enabled.Store(true)

	// Fired with connected=false when a peripheral drops.
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := device.Address.String()
		c.mu.Lock()
		conn, ok := c.conns[addr]
		delete(c.conns, addr)
		c.mu.Unlock()
		if ok {
			slog.Info("[BLE] peripheral disconnected", "address", addr)
			c.post(Disconnected{Device: conn.info})
		}
	})

	if w, ok := c.radio.(RadioWatcher); ok {
		if err := w.Watch(func(s RadioState) { c.post(RadioStateChanged{State: s}) }); err != nil {
			slog.Warn("[BLE] radio watch unavailable", "error", err)
		}
	}

	c.post(RadioStateChanged{State: c.State()})
	return nil
}

func (c *TinyGoCentral) State() RadioState {
	if c.radio != nil {
		return c.radio.RadioState()
	}
	if c.enabled.Load() {
		return RadioPoweredOn
	}
	return RadioUnknown
}

func (c *TinyGoCentral) Scan(serviceUUID string) error {
	uuid, err := ParseUUID(serviceUUID)
	if err != nil {
		return fmt.Errorf("ble: parse service UUID: %w", err)
	}
	if !c.scanning.CompareAndSwap(false, true) {
		return errors.New("ble: scan already in progress")
	}

	c.mu.Lock()
	prev := c.scanDone
	done := make(chan struct{})
	c.scanDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		// tinygo refuses a new scan until the stopped one has returned.
		if prev != nil {
			<-prev
		}
		if !c.scanning.Load() {
			return
		}
		// Blocks until StopScan.
		err := c.scanner.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !result.HasServiceUUID(uuid) {
				return
			}
			addr := result.Address.String()
			c.mu.Lock()
			c.seen[addr] = result.Address
			c.mu.Unlock()

			ev := Discovered{Device: Device{
				Name:    result.LocalName(),
				Address: addr,
				RSSI:    int(result.RSSI),
			}}
			select {
			case c.events <- ev:
			default:
				slog.Debug("[BLE] event queue full, dropping advertisement", "address", addr)
			}
		})
		if err != nil {
			slog.Warn("[BLE] scan ended", "error", err)
			c.mu.Lock()
			if c.scanDone == done {
				c.scanning.Store(false)
			}
			c.mu.Unlock()
		}
	}()
	return nil
}

// StopScan stops the running scan. Scanning is reported as stopped at once,
// so a new Scan may follow immediately.
func (c *TinyGoCentral) StopScan() error {
	if !c.scanning.CompareAndSwap(true, false) {
		return nil
	}
	return c.scanner.StopScan()
}

func (c *TinyGoCentral) IsScanning() bool {
	return c.scanning.Load()
}

func (c *TinyGoCentral) Connect(dev Device) error {
	c.mu.Lock()
	addr, ok := c.seen[dev.Address]
	if ok {
		c.pending[dev.Address] = false
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: %s was not seen in a scan", dev.Address)
	}

	go func() {
		// tinygo's Connect blocks with its own timeout and cannot be
		// interrupted; a cancel while it runs is applied afterwards.
		device, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})

		c.mu.Lock()
		canceled := c.pending[dev.Address]
		delete(c.pending, dev.Address)
		if err == nil && !canceled {
			c.conns[dev.Address] = &tinygoConn{info: dev, device: device}
		}
		c.mu.Unlock()

		switch {
		case err != nil:
			c.post(Disconnected{Device: dev, Err: fmt.Errorf("ble: connect to %s: %w", dev.Address, err)})
		case canceled:
			_ = device.Disconnect()
			c.post(Disconnected{Device: dev})
		default:
			slog.Info("[BLE] connected", "name", dev.Name, "address", dev.Address)
			c.post(Connected{Device: dev})
		}
	}()
	return nil
}

func (c *TinyGoCentral) CancelConnection(dev Device) error {
	c.mu.Lock()
	if _, ok := c.pending[dev.Address]; ok {
		c.pending[dev.Address] = true
		c.mu.Unlock()
		return nil
	}
	conn, ok := c.conns[dev.Address]
	delete(c.conns, dev.Address)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	err := conn.device.Disconnect()
	c.post(Disconnected{Device: conn.info})
	if err != nil {
		return fmt.Errorf("ble: disconnect %s: %w", dev.Address, err)
	}
	return nil
}

func (c *TinyGoCentral) DiscoverService(dev Device, serviceUUID string) error {
	uuid, err := ParseUUID(serviceUUID)
	if err != nil {
		return fmt.Errorf("ble: parse service UUID: %w", err)
	}
	c.mu.Lock()
	conn, ok := c.conns[dev.Address]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: %s is not connected", dev.Address)
	}

	go func() {
		svcs, err := conn.device.DiscoverServices([]bluetooth.UUID{uuid})
		if err != nil {
			c.post(DiscoveryFailed{Device: dev, Err: fmt.Errorf("ble: discover services: %w", err)})
			return
		}
		if len(svcs) == 0 {
			c.post(DiscoveryFailed{Device: dev, Err: fmt.Errorf("ble: service %s not found", serviceUUID)})
			return
		}
		c.post(ServiceFound{Device: dev, Service: &tinygoService{device: dev, svc: svcs[0]}})
	}()
	return nil
}

func (c *TinyGoCentral) DiscoverCharacteristic(svc Service, charUUID string) error {
	ts, ok := svc.(*tinygoService)
	if !ok {
		return fmt.Errorf("ble: service %T does not belong to this central", svc)
	}
	uuid, err := ParseUUID(charUUID)
	if err != nil {
		return fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	go func() {
		chars, err := ts.svc.DiscoverCharacteristics([]bluetooth.UUID{uuid})
		if err != nil {
			c.post(DiscoveryFailed{Device: ts.device, Err: fmt.Errorf("ble: discover characteristics: %w", err)})
			return
		}
		if len(chars) == 0 {
			c.post(DiscoveryFailed{Device: ts.device, Err: fmt.Errorf("ble: characteristic %s not found", charUUID)})
			return
		}
		c.post(CharacteristicFound{Device: ts.device, Characteristic: &tinygoCharacteristic{char: chars[0]}})
	}()
	return nil
}

func (c *TinyGoCentral) Events() <-chan Event {
	return c.events
}

// Close stops scanning, drops every connection and stops event delivery.
func (c *TinyGoCentral) Close() error {
	_ = c.StopScan()
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*tinygoConn)
	c.mu.Unlock()
	for _, conn := range conns {
		_ = conn.device.Disconnect()
	}
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	if closer, ok := c.radio.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// post queues ev. CancelConnection posts from the goroutine that drains
// Events, so a full queue hands off instead of blocking.
func (c *TinyGoCentral) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	default:
		go func() {
			select {
			case c.events <- ev:
			case <-c.done:
			}
		}()
	}
}

// Compile-time check that TinyGoCentral implements Central.
var _ Central = (*TinyGoCentral)(nil)

type tinygoService struct {
	device Device
	svc    bluetooth.DeviceService
}

func (s *tinygoService) UUID() string {
	return s.svc.UUID().String()
}

type tinygoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) UUID() string {
	return c.char.UUID().String()
}

func (c *tinygoCharacteristic) WriteWithoutResponse(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
