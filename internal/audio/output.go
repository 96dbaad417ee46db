package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/faiface/beep"
)

const playbackFrameBytes = 8 // stereo float32

// DeviceOutput renders a beep stream through a malgo playback device.
type DeviceOutput struct {
	newDevice func(*DeviceConfig) Device

	mu  sync.Mutex
	dev Device
	buf [][2]float64
}

// NewDeviceOutput creates an output backed by the default playback device.
func NewDeviceOutput() *DeviceOutput {
	return &DeviceOutput{newDevice: NewDevice}
}

// Start opens a playback device at rate and begins pulling from src.
func (o *DeviceOutput) Start(rate beep.SampleRate, src beep.Streamer) error {
	o.Stop()

	ctx := context.Background()
	dev := o.newDevice(PlaybackConfig(int(rate)))

	err := dev.Render(ctx, func(out []byte, frameCount uint32) {
		o.fill(src, out, int(frameCount))
	})
	if err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}

	if err := dev.Start(ctx); err != nil {
		dev.Dealloc(ctx)
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	o.mu.Lock()
	o.dev = dev
	o.mu.Unlock()

	return nil
}

// Stop closes the device, if any.
func (o *DeviceOutput) Stop() {
	o.mu.Lock()
	dev := o.dev
	o.dev = nil
	o.mu.Unlock()

	if dev == nil {
		return
	}

	ctx := context.Background()
	_ = dev.Stop(ctx)
	dev.Dealloc(ctx)
}

// fill runs on the audio thread.
func (o *DeviceOutput) fill(src beep.Streamer, out []byte, frames int) {
	frames = min(frames, len(out)/playbackFrameBytes)
	if cap(o.buf) < frames {
		o.buf = make([][2]float64, frames)
	}
	buf := o.buf[:frames]

	n, _ := src.Stream(buf)
	for i := range frames {
		var l, r float32
		if i < n {
			l, r = float32(buf[i][0]), float32(buf[i][1])
		}
		binary.LittleEndian.PutUint32(out[i*playbackFrameBytes:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(out[i*playbackFrameBytes+4:], math.Float32bits(r))
	}
}
