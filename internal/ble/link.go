package ble

import (
	"fmt"
	"log/slog"
	"time"
)

// Status texts shown to the operator.
const (
	StatusScanning = "Scanning..."
	StatusCanceled = "**Canceled scanning.**"
	StatusAllSet   = "All set!"
)

// Listener receives link notifications. All calls happen on the goroutine
// that drives the Link.
type Listener interface {
	OnStatus(text string)
	OnReady()
	OnNotReady()
}

// Target identifies the one peripheral, service and characteristic the link
// resolves.
type Target struct {
	Name               string
	ServiceUUID        string
	CharacteristicUUID string
}

// DefaultTarget returns the identity of the stock BT05 bridge.
func DefaultTarget() Target {
	return Target{
		Name:               DefaultDeviceName,
		ServiceUUID:        DefaultServiceUUID,
		CharacteristicUUID: DefaultCharacteristicUUID,
	}
}

// LinkOptions configures the Link.
type LinkOptions struct {
	// AutoScan starts scanning when the radio reports powered-on while idle
	// or disconnected.
	AutoScan bool
	// DiscoveryTimeout bounds connect plus service/characteristic discovery.
	// Zero disables it.
	DiscoveryTimeout time.Duration
}

// DefaultLinkOptions returns the stock behavior: scan as soon as the radio
// comes up, no discovery timeout.
func DefaultLinkOptions() LinkOptions {
	return LinkOptions{AutoScan: true}
}

// Link is the central-role state machine. It is not safe for concurrent
// use: StartScanning, CancelScanning, SendCommand and Handle must all be
// called from one goroutine.
type Link struct {
	central  Central
	target   Target
	listener Listener
	opts     LinkOptions

	st linkState

	attempt  uint64
	timer    *time.Timer
	timeouts chan Event
}

// NewLink creates a Link in the Idle state. A nil listener discards
// notifications.
func NewLink(central Central, target Target, listener Listener, opts LinkOptions) *Link {
	if listener == nil {
		listener = nopListener{}
	}
	return &Link{
		central:  central,
		target:   target,
		listener: listener,
		opts:     opts,
		st:       idleState{},
		timeouts: make(chan Event, 1),
	}
}

// State returns the current phase.
func (l *Link) State() State {
	return l.st.kind()
}

// Ready reports whether a characteristic is resolved.
func (l *Link) Ready() bool {
	_, ok := l.st.(readyState)
	return ok
}

// Reason returns why the link is disconnected, or "" in any other state.
func (l *Link) Reason() string {
	if d, ok := l.st.(disconnectedState); ok {
		return d.reason
	}
	return ""
}

// Timeouts delivers DiscoveryTimedOut events. Feed them back into Handle.
func (l *Link) Timeouts() <-chan Event {
	return l.timeouts
}

// StartScanning begins scanning for the target. It does nothing while an
// attempt is already in flight or the link is ready, and reports the unmet
// precondition when the radio is not powered on.
func (l *Link) StartScanning() {
	switch l.st.(type) {
	case idleState, disconnectedState:
	default:
		slog.Debug("[LINK] start scanning ignored", "state", l.State())
		return
	}

	radio := l.central.State()
	if radio != RadioPoweredOn {
		l.status(radioMessage(radio))
		return
	}
	l.scan(StatusScanning)
}

func (l *Link) scan(text string) {
	if err := l.central.Scan(l.target.ServiceUUID); err != nil {
		l.status(fmt.Sprintf("**Error: %v.**", err))
		return
	}
	l.st = scanningState{}
	l.status(text)
}

// CancelScanning abandons whatever the link is doing. It is valid in every
// state and always reports the cancellation.
func (l *Link) CancelScanning() {
	prev := l.st

	if dev, ok := heldDevice(prev); ok {
		if err := l.central.CancelConnection(dev); err != nil {
			slog.Warn("[LINK] cancel connection failed", "address", dev.Address, "error", err)
		}
	}
	if _, ok := prev.(scanningState); ok || l.central.IsScanning() {
		if err := l.central.StopScan(); err != nil {
			slog.Warn("[LINK] stop scan failed", "error", err)
		}
	}
	l.stopTimer()

	if _, ok := prev.(idleState); !ok {
		l.st = disconnectedState{reason: "canceled"}
	}
	if _, ok := prev.(readyState); ok {
		l.listener.OnNotReady()
	}
	l.status(StatusCanceled)
}

// SendCommand writes v as a single byte without response. It is a silent
// no-op unless the link is ready.
func (l *Link) SendCommand(v int8) {
	r, ok := l.st.(readyState)
	if !ok {
		slog.Debug("[LINK] write ignored, no link", "value", v)
		return
	}
	if err := r.char.WriteWithoutResponse([]byte{byte(v)}); err != nil {
		slog.Warn("[LINK] write failed", "value", v, "error", err)
	}
}

// Handle applies one event to the state machine.
func (l *Link) Handle(ev Event) {
	switch ev := ev.(type) {
	case RadioStateChanged:
		l.onRadio(ev)
	case Discovered:
		l.onDiscovered(ev)
	case Connected:
		l.onConnected(ev)
	case ServiceFound:
		l.onServiceFound(ev)
	case CharacteristicFound:
		l.onCharacteristicFound(ev)
	case DiscoveryFailed:
		l.onDiscoveryFailed(ev)
	case DiscoveryTimedOut:
		l.onTimeout(ev)
	case Disconnected:
		l.onDisconnected(ev)
	default:
		slog.Warn("[LINK] unknown event", "event", fmt.Sprintf("%T", ev))
	}
}

func (l *Link) onRadio(ev RadioStateChanged) {
	if ev.State != RadioPoweredOn {
		if _, ok := l.st.(scanningState); ok {
			l.st = idleState{}
		}
		l.status(radioMessage(ev.State))
		return
	}
	switch l.st.(type) {
	case idleState, disconnectedState:
		if l.opts.AutoScan {
			l.scan("Ready to go! Scanning...")
			return
		}
	}
	l.status("Bluetooth is on.")
}

func (l *Link) onDiscovered(ev Discovered) {
	if _, ok := l.st.(scanningState); !ok {
		return
	}
	dev := ev.Device
	l.status("Found: " + displayName(dev))
	if dev.Name != l.target.Name {
		return
	}

	l.status(fmt.Sprintf("Found %s! Connecting... RSSI: %d", dev.Name, dev.RSSI))
	if err := l.central.StopScan(); err != nil {
		slog.Warn("[LINK] stop scan failed", "error", err)
	}
	if err := l.central.Connect(dev); err != nil {
		l.status(fmt.Sprintf("**Error: %v.**", err))
		l.st = disconnectedState{reason: err.Error()}
		return
	}
	l.st = connectingState{device: dev}
	l.armTimer()
}

func (l *Link) onConnected(ev Connected) {
	c, ok := l.st.(connectingState)
	if !ok || c.device.Address != ev.Device.Address {
		slog.Debug("[LINK] stale connect ignored", "address", ev.Device.Address, "state", l.State())
		return
	}
	l.status(displayName(c.device) + " connected!")
	l.st = serviceDiscoveryState{device: c.device}
	if err := l.central.DiscoverService(c.device, l.target.ServiceUUID); err != nil {
		l.failDiscovery(c.device, err)
	}
}

func (l *Link) onServiceFound(ev ServiceFound) {
	s, ok := l.st.(serviceDiscoveryState)
	if !ok || s.device.Address != ev.Device.Address {
		return
	}
	if !SameUUID(ev.Service.UUID(), l.target.ServiceUUID) {
		slog.Debug("[LINK] ignoring service", "uuid", ev.Service.UUID())
		return
	}
	l.status(fmt.Sprintf("Found %s services.", displayName(s.device)))
	l.st = characteristicDiscoveryState{device: s.device, service: ev.Service}
	if err := l.central.DiscoverCharacteristic(ev.Service, l.target.CharacteristicUUID); err != nil {
		l.failDiscovery(s.device, err)
	}
}

func (l *Link) onCharacteristicFound(ev CharacteristicFound) {
	c, ok := l.st.(characteristicDiscoveryState)
	if !ok || c.device.Address != ev.Device.Address {
		return
	}
	l.status(fmt.Sprintf("Found %s characteristics.", displayName(c.device)))
	if !SameUUID(ev.Characteristic.UUID(), l.target.CharacteristicUUID) {
		slog.Debug("[LINK] ignoring characteristic", "uuid", ev.Characteristic.UUID())
		return
	}
	l.stopTimer()
	l.st = readyState{device: c.device, char: ev.Characteristic}
	l.status(StatusAllSet)
	l.listener.OnReady()
}

func (l *Link) onDiscoveryFailed(ev DiscoveryFailed) {
	dev, ok := heldDevice(l.st)
	if !ok || dev.Address != ev.Device.Address {
		return
	}
	l.failDiscovery(dev, ev.Err)
}

// failDiscovery reports err and tears the connection down. The Disconnected
// event that follows completes the transition.
func (l *Link) failDiscovery(dev Device, err error) {
	l.status(fmt.Sprintf("**Error: %v.**", err))
	if cerr := l.central.CancelConnection(dev); cerr != nil {
		slog.Warn("[LINK] cancel connection failed", "address", dev.Address, "error", cerr)
	}
}

func (l *Link) onTimeout(ev DiscoveryTimedOut) {
	if ev.Attempt != l.attempt {
		return
	}
	dev, ok := heldDevice(l.st)
	if !ok || l.Ready() {
		return
	}
	l.timer = nil
	l.status(fmt.Sprintf("**Error: %s timed out after %s.**", displayName(dev), ev.After))
	if err := l.central.CancelConnection(dev); err != nil {
		slog.Warn("[LINK] cancel connection failed", "address", dev.Address, "error", err)
	}
	l.st = disconnectedState{reason: "timeout"}
	l.listener.OnNotReady()
}

func (l *Link) onDisconnected(ev Disconnected) {
	if dev, ok := heldDevice(l.st); ok && ev.Device.Address != "" && dev.Address != ev.Device.Address {
		slog.Debug("[LINK] stale disconnect ignored", "address", ev.Device.Address, "held", dev.Address)
		return
	}
	if _, ok := l.st.(scanningState); ok {
		if err := l.central.StopScan(); err != nil {
			slog.Warn("[LINK] stop scan failed", "error", err)
		}
	}
	l.stopTimer()

	l.status(fmt.Sprintf("**Error: %s disconnected!**", displayName(ev.Device)))
	reason := "link lost"
	if ev.Err != nil {
		reason = ev.Err.Error()
		l.status("*Error: " + reason)
	}
	l.st = disconnectedState{reason: reason}
	l.listener.OnNotReady()
}

func (l *Link) armTimer() {
	l.stopTimer()
	if l.opts.DiscoveryTimeout <= 0 {
		return
	}
	attempt, after := l.attempt, l.opts.DiscoveryTimeout
	l.timer = time.AfterFunc(after, func() {
		select {
		case l.timeouts <- DiscoveryTimedOut{Attempt: attempt, After: after}:
		default:
		}
	})
}

// stopTimer disarms the discovery timer and invalidates any timeout event
// already queued.
func (l *Link) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.attempt++
}

func (l *Link) status(text string) {
	slog.Debug("[LINK] status", "state", l.State(), "text", text)
	l.listener.OnStatus(text)
}

func radioMessage(r RadioState) string {
	switch r {
	case RadioPoweredOff:
		return "Turn on Bluetooth!"
	case RadioResetting:
		return "Resetting..."
	case RadioUnauthorized:
		return "Unauthorized to use BLE."
	case RadioUnsupported:
		return "BLE not supported."
	case RadioPoweredOn:
		return "Bluetooth is on."
	default:
		return "Something went wrong with BLE."
	}
}

func displayName(d Device) string {
	if d.Name != "" {
		return d.Name
	}
	if d.Address != "" {
		return d.Address
	}
	return "device"
}

type nopListener struct{}

func (nopListener) OnStatus(string) {}
func (nopListener) OnReady()        {}
func (nopListener) OnNotReady()     {}
