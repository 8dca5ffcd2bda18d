package tilt

import "github.com/go-vgo/robotgo"

// Pointer maps the mouse pointer's vertical offset from the screen centre
// to ±maxAngle: top edge is -maxAngle (forward), bottom edge +maxAngle.
type Pointer struct {
	maxAngle float64
	locate   func() (int, int)
	screen   func() (int, int)
}

// NewPointer creates a pointer source.
func NewPointer(maxAngle float64) *Pointer {
	return &Pointer{
		maxAngle: maxAngle,
		locate:   robotgo.Location,
		screen:   robotgo.GetScreenSize,
	}
}

func (p *Pointer) Angle() (float64, bool) {
	_, h := p.screen()
	if h <= 0 {
		return 0, false
	}
	_, y := p.locate()
	return pointerAngle(y, h, p.maxAngle), true
}

func pointerAngle(y, height int, maxAngle float64) float64 {
	half := float64(height) / 2
	off := (float64(y) - half) / half
	if off > 1 {
		off = 1
	} else if off < -1 {
		off = -1
	}
	return off * maxAngle
}
