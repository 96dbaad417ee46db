// Package uictl defines the small control surfaces the terminal UI reads and
// drives, so phases never touch devices or players directly.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Knob is a simple on/off toggle control.
type Knob interface {
	Read() bool
	On()
	Off()
	Toggle()
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Levels reads a window of recent sample values.
type Levels[N Number] interface {
	Read() []N
}

// Fraction reports how far d is toward its cap, clamped to [0, 1].
// An unknown or zero cap reads as 0.
func Fraction[N Number](d CappedDial[N]) float64 {
	if d == nil {
		return 0
	}

	num, limit := d.Cap()
	if limit <= 0 {
		return 0
	}

	return min(max(float64(num)/float64(limit), 0), 1)
}
