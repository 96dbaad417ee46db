package playback

import "github.com/alkime/drumtone/pkg/uictl"

// playKnob exposes play/pause as a uictl.Knob.
type playKnob struct {
	c *Controller
}

func (k playKnob) Read() bool { return k.c.Snapshot().IsPlaying() }

func (k playKnob) On() {
	if !k.Read() {
		k.c.Toggle()
	}
}

func (k playKnob) Off() {
	if k.Read() {
		k.c.Toggle()
	}
}

func (k playKnob) Toggle() { k.c.Toggle() }

// progressDial exposes position over duration as a uictl.CappedDial.
type progressDial struct {
	c *Controller
}

func (d progressDial) Read() float64 { return d.c.Snapshot().Position }

func (d progressDial) Cap() (float64, float64) {
	s := d.c.Snapshot()
	return s.Position, s.Duration
}

// PlayPause returns a knob driving Toggle.
func (c *Controller) PlayPause() uictl.Knob {
	return playKnob{c: c}
}

// Progress returns a dial reading position against duration.
func (c *Controller) Progress() uictl.CappedDial[float64] {
	return progressDial{c: c}
}
