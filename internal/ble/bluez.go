package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	bluezBus      = "org.bluez"
	bluezAdapter  = "org.bluez.Adapter1"
	propsIface    = "org.freedesktop.DBus.Properties"
	propsChanged  = "org.freedesktop.DBus.Properties.PropertiesChanged"
	defaultHCIDev = "hci0"
)

// RadioProber reports the radio state from a source other than the BLE
// stack itself.
type RadioProber interface {
	RadioState() RadioState
}

// RadioWatcher is a RadioProber that can also push state changes.
type RadioWatcher interface {
	RadioProber
	Watch(fn func(RadioState)) error
}

// BluezRadio reads the power state of a BlueZ adapter over the system bus.
type BluezRadio struct {
	conn *dbus.Conn
	path dbus.ObjectPath

	once    sync.Once
	signals chan *dbus.Signal
	quit    chan struct{}
}

// NewBluezRadio connects to the system bus for the adapter named hci
// ("hci0" when empty).
func NewBluezRadio(hci string) (*BluezRadio, error) {
	if hci == "" {
		hci = defaultHCIDev
	}
	// A private connection, so Close does not tear down the shared one
	// tinygo uses on Linux.
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("ble: connect to system bus: %w", err)
	}
	return &BluezRadio{
		conn: conn,
		path: dbus.ObjectPath("/org/bluez/" + hci),
	}, nil
}

// RadioState maps Adapter1.PowerState (or Powered on older BlueZ) to a
// RadioState.
func (b *BluezRadio) RadioState() RadioState {
	obj := b.conn.Object(bluezBus, b.path)

	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, bluezAdapter, "PowerState").Store(&v)
	if err == nil {
		if s, ok := v.Value().(string); ok {
			return radioFromPowerState(s)
		}
	}

	if err := obj.Call(propsIface+".Get", 0, bluezAdapter, "Powered").Store(&v); err != nil {
		return radioFromDBusError(err)
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return RadioUnknown
	}
	if powered {
		return RadioPoweredOn
	}
	return RadioPoweredOff
}

// Watch calls fn with the new state whenever the adapter's power changes.
// fn runs on a dedicated goroutine.
func (b *BluezRadio) Watch(fn func(RadioState)) error {
	var err error
	b.once.Do(func() {
		rule := fmt.Sprintf("type='signal',interface='%s',member='PropertiesChanged',path='%s'", propsIface, b.path)
		if err = b.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			err = fmt.Errorf("ble: add match: %w", err)
			return
		}
		b.signals = make(chan *dbus.Signal, 16)
		b.quit = make(chan struct{})
		b.conn.Signal(b.signals)
		go func() {
			for {
				select {
				case sig, ok := <-b.signals:
					if !ok {
						return
					}
					if _, ok := radioFromSignal(sig, b.path); ok {
						// Re-read so PowerState and Powered agree.
						fn(b.RadioState())
					}
				case <-b.quit:
					return
				}
			}
		}()
	})
	return err
}

// Close stops the Watch goroutine and releases the bus connection.
func (b *BluezRadio) Close() error {
	if b.quit != nil {
		close(b.quit)
		b.conn.RemoveSignal(b.signals)
	}
	return b.conn.Close()
}

var _ RadioWatcher = (*BluezRadio)(nil)

func radioFromPowerState(s string) RadioState {
	switch s {
	case "on":
		return RadioPoweredOn
	case "off", "off-blocked":
		return RadioPoweredOff
	case "off-enabling", "on-disabling":
		return RadioResetting
	default:
		return RadioUnknown
	}
}

func radioFromDBusError(err error) RadioState {
	name := ""
	var derr dbus.Error
	var perr *dbus.Error
	switch {
	case errors.As(err, &derr):
		name = derr.Name
	case errors.As(err, &perr):
		name = perr.Name
	}
	switch name {
	case "org.freedesktop.DBus.Error.AccessDenied", "org.bluez.Error.NotAuthorized":
		return RadioUnauthorized
	case "org.freedesktop.DBus.Error.ServiceUnknown", "org.freedesktop.DBus.Error.UnknownObject":
		return RadioUnsupported
	default:
		slog.Debug("[BLE] bluez probe failed", "error", err)
		return RadioUnknown
	}
}

// radioFromSignal extracts a power change for path from a PropertiesChanged
// signal.
func radioFromSignal(sig *dbus.Signal, path dbus.ObjectPath) (RadioState, bool) {
	if sig == nil || sig.Name != propsChanged || sig.Path != path || len(sig.Body) < 2 {
		return RadioUnknown, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != bluezAdapter {
		return RadioUnknown, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return RadioUnknown, false
	}
	if v, ok := changed["PowerState"]; ok {
		if s, ok := v.Value().(string); ok {
			return radioFromPowerState(s), true
		}
	}
	if v, ok := changed["Powered"]; ok {
		if on, ok := v.Value().(bool); ok {
			if on {
				return RadioPoweredOn, true
			}
			return RadioPoweredOff, true
		}
	}
	return RadioUnknown, false
}
