// Package ble drives the BLE central role for the skateboard link: it finds
// one peripheral by advertised name, resolves one service/characteristic
// pair and writes single command bytes to it.
package ble

// Default target identity of the HM-10 style bridge on the board.
const (
	DefaultDeviceName         = "BT05"
	DefaultServiceUUID        = "FFE0"
	DefaultCharacteristicUUID = "FFE1"
)

// RadioState is the power/authorization state of the local radio.
type RadioState int

const (
	RadioUnknown RadioState = iota
	RadioResetting
	RadioUnsupported
	RadioUnauthorized
	RadioPoweredOff
	RadioPoweredOn
)

func (r RadioState) String() string {
	switch r {
	case RadioResetting:
		return "resetting"
	case RadioUnsupported:
		return "unsupported"
	case RadioUnauthorized:
		return "unauthorized"
	case RadioPoweredOff:
		return "powered-off"
	case RadioPoweredOn:
		return "powered-on"
	default:
		return "unknown"
	}
}

// Device is a peripheral seen in an advertisement.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Service is a resolved GATT service.
type Service interface {
	UUID() string
}

// Characteristic is a resolved GATT characteristic.
type Characteristic interface {
	UUID() string
	// WriteWithoutResponse sends data without waiting for an acknowledgment.
	WriteWithoutResponse(data []byte) error
}

// Central abstracts the link layer for the Link state machine.
//
// Every method returns immediately. Outcomes (discoveries, connects,
// disconnects, resolved services and characteristics) are delivered later
// as Events on the channel returned by Events.
type Central interface {
	// State reports the current radio state.
	State() RadioState
	// Scan starts scanning for peripherals advertising serviceUUID.
	Scan(serviceUUID string) error
	// StopScan stops an active scan.
	StopScan() error
	// IsScanning reports whether a scan is active.
	IsScanning() bool
	// Connect starts connecting to a discovered device.
	Connect(dev Device) error
	// CancelConnection disconnects from, or abandons a pending connect to, dev.
	CancelConnection(dev Device) error
	// DiscoverService resolves serviceUUID on a connected device.
	DiscoverService(dev Device, serviceUUID string) error
	// DiscoverCharacteristic resolves charUUID within svc.
	DiscoverCharacteristic(svc Service, charUUID string) error
	// Events returns the channel on which link-layer events are delivered.
	Events() <-chan Event
}
