package ble

import "time"

// Event is a link-layer occurrence consumed by Link.Handle. The concrete
// types below are the only implementations.
type Event interface {
	isEvent()
}

// RadioStateChanged reports a change of the local radio state.
type RadioStateChanged struct {
	State RadioState
}

// Discovered reports an advertisement seen while scanning.
type Discovered struct {
	Device Device
}

// Connected reports a completed link-layer connection.
type Connected struct {
	Device Device
}

// Disconnected reports a dropped connection or a failed connect.
// Err is nil for a clean disconnect.
type Disconnected struct {
	Device Device
	Err    error
}

// ServiceFound reports a resolved service.
type ServiceFound struct {
	Device  Device
	Service Service
}

// CharacteristicFound reports a resolved characteristic.
type CharacteristicFound struct {
	Device         Device
	Characteristic Characteristic
}

// DiscoveryFailed reports that service or characteristic discovery failed.
type DiscoveryFailed struct {
	Device Device
	Err    error
}

// DiscoveryTimedOut is raised by the Link itself when a connection attempt
// outlives the configured discovery timeout.
type DiscoveryTimedOut struct {
	Attempt uint64
	After   time.Duration
}

func (RadioStateChanged) isEvent()   {}
func (Discovered) isEvent()          {}
func (Connected) isEvent()           {}
func (Disconnected) isEvent()        {}
func (ServiceFound) isEvent()        {}
func (CharacteristicFound) isEvent() {}
func (DiscoveryFailed) isEvent()     {}
func (DiscoveryTimedOut) isEvent()   {}
