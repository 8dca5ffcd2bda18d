// Package command turns operator input into the single-byte commands the
// board firmware understands: signed speed in [-100, 100] plus two
// direction-switch sentinels.
package command

import (
	"log/slog"
	"math"
)

// Wire values.
const (
	MaxSpeed int8 = 100
	MinSpeed int8 = -100

	// SwitchBackward and SwitchForward are sent ahead of a magnitude to flip
	// the motor direction.
	SwitchBackward int8 = 101
	SwitchForward  int8 = 102
)

// Tilt mapping constants. Angles are in degrees.
const (
	DeadZone = 20.0
	TiltGain = 1.2
)

// Direction is the logical motor direction.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Inverted returns the opposite direction.
func (d Direction) Inverted() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

// Sender is the link the mapper writes to.
type Sender interface {
	SendCommand(v int8)
}

// Mapper translates slider, direction and tilt input into command bytes.
// Not safe for concurrent use.
type Mapper struct {
	sender    Sender
	direction Direction
	lastSpeed int8
	motion    bool
}

// NewMapper creates a Mapper facing Forward at zero speed.
func NewMapper(sender Sender) *Mapper {
	return &Mapper{sender: sender}
}

// Direction returns the current logical direction.
func (m *Mapper) Direction() Direction { return m.direction }

// Speed returns the last speed sent.
func (m *Mapper) Speed() int8 { return m.lastSpeed }

// MotionMode reports whether tilt input is driving the board.
func (m *Mapper) MotionMode() bool { return m.motion }

// SetSpeed sends the clamped input once per change.
func (m *Mapper) SetSpeed(v int) {
	speed := Clamp(v)
	if speed == m.lastSpeed {
		return
	}
	m.send(speed)
}

// SwitchDirection sends the sentinel for the opposite direction followed by
// a stop, then flips the direction.
func (m *Mapper) SwitchDirection() {
	if m.direction == Forward {
		m.send(SwitchBackward)
	} else {
		m.send(SwitchForward)
	}
	m.Stop()
	m.direction = m.direction.Inverted()
	slog.Info("[CMD] direction switched", "direction", m.direction)
}

// Stop sends a zero speed and resets the slider.
func (m *Mapper) Stop() {
	m.send(0)
}

// SetMotionMode enters or leaves tilt control. Any change forces a stop.
func (m *Mapper) SetMotionMode(on bool) {
	if on == m.motion {
		return
	}
	m.motion = on
	m.Stop()
}

// Tilt maps one angle sample to commands. Outside motion mode it does
// nothing. Inside the dead zone it sends zero; otherwise it sends a
// direction sentinel on a sign change and then the absolute magnitude.
func (m *Mapper) Tilt(angle float64) {
	if !m.motion {
		return
	}
	magnitude, dir, moving := TiltMagnitude(angle)
	if !moving {
		m.send(0)
		return
	}
	if dir != m.direction {
		if dir == Backward {
			m.send(SwitchBackward)
		} else {
			m.send(SwitchForward)
		}
		m.direction = dir
	}
	m.send(magnitude)
}

// TiltMagnitude scales angle into a speed. Positive tilt past the dead zone
// means Backward, negative means Forward. moving is false inside the dead
// zone.
func TiltMagnitude(angle float64) (magnitude int8, dir Direction, moving bool) {
	switch {
	case angle > DeadZone:
		v := math.Min(TiltGain*angle-DeadZone, float64(MaxSpeed))
		return int8(math.Round(v)), Backward, true
	case angle < -DeadZone:
		v := math.Max(TiltGain*angle+DeadZone, float64(MinSpeed))
		return int8(math.Round(math.Abs(v))), Forward, true
	default:
		return 0, Forward, false
	}
}

// Clamp limits v to [MinSpeed, MaxSpeed].
func Clamp(v int) int8 {
	if v > int(MaxSpeed) {
		return MaxSpeed
	}
	if v < int(MinSpeed) {
		return MinSpeed
	}
	return int8(v)
}

func (m *Mapper) send(v int8) {
	m.sender.SendCommand(v)
	if v != SwitchBackward && v != SwitchForward {
		m.lastSpeed = v
	}
}
