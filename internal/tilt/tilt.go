// Package tilt supplies angle samples (degrees) for motion mode. A nil
// Source means motion mode is unavailable.
package tilt

// Source yields the most recent tilt angle in degrees. ok is false until a
// first sample exists.
type Source interface {
	Angle() (angle float64, ok bool)
}

// Invert flips the sign of every sample from s.
func Invert(s Source) Source {
	return inverted{s}
}

type inverted struct {
	Source
}

func (i inverted) Angle() (float64, bool) {
	a, ok := i.Source.Angle()
	return -a, ok
}
