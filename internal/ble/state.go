package ble

// State enumerates the phases of the link.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateServiceDiscovery
	StateCharacteristicDiscovery
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateServiceDiscovery:
		return "service-discovery"
	case StateCharacteristicDiscovery:
		return "characteristic-discovery"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return "invalid"
	}
}

// linkState is the current phase together with the references that only
// exist in that phase.
type linkState interface {
	kind() State
}

type idleState struct{}

type scanningState struct{}

type connectingState struct {
	device Device
}

type serviceDiscoveryState struct {
	device Device
}

type characteristicDiscoveryState struct {
	device  Device
	service Service
}

type readyState struct {
	device Device
	char   Characteristic
}

type disconnectedState struct {
	reason string
}

func (idleState) kind() State                    { return StateIdle }
func (scanningState) kind() State                { return StateScanning }
func (connectingState) kind() State              { return StateConnecting }
func (serviceDiscoveryState) kind() State        { return StateServiceDiscovery }
func (characteristicDiscoveryState) kind() State { return StateCharacteristicDiscovery }
func (readyState) kind() State                   { return StateReady }
func (disconnectedState) kind() State            { return StateDisconnected }

// heldDevice returns the peripheral referenced by s, if any.
func heldDevice(s linkState) (Device, bool) {
	switch st := s.(type) {
	case connectingState:
		return st.device, true
	case serviceDiscoveryState:
		return st.device, true
	case characteristicDiscoveryState:
		return st.device, true
	case readyState:
		return st.device, true
	default:
		return Device{}, false
	}
}
