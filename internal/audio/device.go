package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alkime/drumtone/pkg/collections"
	"github.com/gen2brain/malgo"
)

var errNoDevice = errors.New("device nil. allocate it with CaptureInto() or Render() first")

// FillFunc writes frameCount frames of PCM into out, in the device's playback format.
type FillFunc func(out []byte, frameCount uint32)

type Device interface {
	// EnumerateDevices lists available capture and playback devices.
	// It ignores any device configuration passed in.
	EnumerateDevices(ctx context.Context) ([]Info, error)

	// CaptureInto initializes the microphone. Once started, each callback's
	// samples are copied into dataC.
	CaptureInto(ctx context.Context, dataC chan DataPacket) error

	// Render initializes the underlying device for playback. Once started,
	// fill is called from the audio thread whenever the device needs frames.
	Render(ctx context.Context, fill FillFunc) error

	// Start starts the audio device.
	Start(ctx context.Context) error
	// Stop stops the audio device.
	// if the underlying device has already been deallocated this is a no-op.
	Stop(ctx context.Context) error

	// Toggle starts or stops the audio device depending on its current state.
	Toggle(ctx context.Context) error

	// IsStarted returns whether the audio device is currently started.
	IsStarted() bool

	// Dealloc deallocates the underlying audio device and frees resources.
	Dealloc(ctx context.Context)
}

type device struct {
	conf *DeviceConfig

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

func NewDevice(conf *DeviceConfig) Device {
	return &device{conf: conf}
}

func (d *device) EnumerateDevices(ctx context.Context) ([]Info, error) {
	// An empty context is enough for enumeration.
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	playbackDevices, err := devCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to get playback devices: %w", err)
	}

	infos := collections.Apply(captureDevices, deviceInfoMapper(KindCapture))
	return append(infos, collections.Apply(playbackDevices, deviceInfoMapper(KindPlayback))...), nil
}

func (d *device) CaptureInto(ctx context.Context, dataC chan DataPacket) error {
	if dataC == nil {
		return errors.New("data channel is nil. unable to allocate device")
	}

	var err error
	d.mgCtx, d.mgDevice, err = d.allocMGDevice(malgo.Capture, malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the buffer between callbacks
			dataC <- bytes.Clone(samples)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create malgo capture device: %w", err)
	}

	return nil
}

func (d *device) Render(ctx context.Context, fill FillFunc) error {
	if fill == nil {
		return errors.New("fill func is nil. unable to allocate device")
	}

	var err error
	d.mgCtx, d.mgDevice, err = d.allocMGDevice(malgo.Playback, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			fill(out, frameCount)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create malgo playback device: %w", err)
	}

	return nil
}

func (d *device) Start(ctx context.Context) error {
	if d.mgDevice == nil {
		return errNoDevice
	}

	if d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (d *device) Stop(ctx context.Context) error {
	if d.mgDevice == nil {
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (d *device) Toggle(ctx context.Context) error {
	if d.mgDevice == nil {
		return errNoDevice
	}

	if d.mgDevice.IsStarted() {
		return d.Stop(ctx)
	}

	return d.Start(ctx)
}

func (d *device) Dealloc(ctx context.Context) {
	d.deallocMGDevice()
}

func (d *device) IsStarted() bool {
	if d.mgDevice == nil {
		return false
	}

	return d.mgDevice.IsStarted()
}

func (d *device) allocMGDevice(
	devType malgo.DeviceType,
	callBacks malgo.DeviceCallbacks,
) (*malgo.AllocatedContext, *malgo.Device, error) {
	if d.mgDevice != nil {
		return nil, nil, errors.New("device already allocated")
	}

	devCnf := malgo.DefaultDeviceConfig(devType)
	devCnf.SampleRate = uint32(d.conf.SampleRate) //nolint:gosec // sample rates are small positive ints

	switch devType { //nolint:exhaustive // duplex and loopback are not used
	case malgo.Capture:
		devCnf.Capture.Format = d.conf.Format
		devCnf.Capture.Channels = uint32(d.conf.CaptureChannels) //nolint:gosec // 1 or 2
	case malgo.Playback:
		devCnf.Playback.Format = d.conf.Format
		devCnf.Playback.Channels = uint32(d.conf.PlaybackChannels) //nolint:gosec // 1 or 2
	default:
		return nil, nil, fmt.Errorf("unsupported device type: %v", devType)
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callBacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return nil, nil, fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	return mgCtx, mgDevice, nil
}

func (d *device) deallocMGDevice() {
	if d.mgDevice == nil {
		return
	}

	d.mgDevice.Uninit()
	uninitializeContext(d.mgCtx)
	d.mgDevice = nil
	d.mgCtx = nil
}

// Kind tells capture devices from playback devices.
type Kind string

const (
	KindCapture  Kind = "capture"
	KindPlayback Kind = "playback"
)

type Info struct {
	Kind        Kind
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

func deviceInfoMapper(kind Kind) func(malgo.DeviceInfo) Info {
	return func(mdi malgo.DeviceInfo) Info {
		formats := make([]string, len(mdi.Formats))
		for i, mf := range mdi.Formats {
			formats[i] = fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
				malgo.SampleSizeInBytes(mf.Format),
				mf.Channels, mf.SampleRate)
		}

		return Info{
			Kind:        kind,
			Name:        mdi.Name(),
			IsDefault:   mdi.IsDefault != 0,
			FormatCount: int(mdi.FormatCount),
			Formats:     formats,
		}
	}
}

type DataPacket = []byte

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}
