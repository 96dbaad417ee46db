package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/pkg/uictl"
)

// DefaultMaxDuration matches the analysis window of the classifier.
const DefaultMaxDuration = 5 * time.Second

// waveformWindow is how many recent samples the waveform reads.
const waveformWindow = 2048

// RecorderConfig configures a microphone clip recording.
type RecorderConfig struct {
	SampleRate  int
	MaxDuration time.Duration
	// Name is the clip file name; it must end in .mp3.
	Name   string
	Logger *slog.Logger
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = DefaultMaxDuration
	}
	if c.Name == "" {
		c.Name = "recording-" + time.Now().Format("20060102-150405") + ".mp3"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c
}

// Recorder turns S16LE mono microphone packets into an MP3 clip, capped at
// MaxDuration. Packets past the cap are drained and dropped.
type Recorder struct {
	config   RecorderConfig
	input    <-chan []byte
	maxBytes int64

	levels  *SampleRingBuffer
	encIn   chan []byte
	encoder *StreamingEncoder
	out     bytes.Buffer

	bytesWritten atomic.Int64
	started      atomic.Bool
	full         chan struct{}
	fullOnce     sync.Once

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewRecorder creates a recorder reading from input.
func NewRecorder(config RecorderConfig, input <-chan []byte) (*Recorder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	config = config.withDefaults()
	if config.SampleRate < 0 || config.MaxDuration < 0 {
		return nil, errors.New("sample rate and max duration must be positive")
	}

	r := &Recorder{ //nolint:exhaustruct // sync fields zero-valued
		config:   config,
		input:    input,
		maxBytes: int64(config.MaxDuration.Seconds()*float64(config.SampleRate)) * 2,
		levels:   NewSampleRingBuffer(config.SampleRate),
		encIn:    make(chan []byte, 64),
		full:     make(chan struct{}),
	}

	enc, err := NewStreamingEncoder(EncoderConfig{
		SampleRate: config.SampleRate,
		Channels:   1,
		Logger:     config.Logger,
	}, r.encIn, &r.out)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	r.encoder = enc

	return r, nil
}

// Start begins consuming packets. Recording ends when input is closed or ctx is done.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return errors.New("recorder already started")
	}

	// the encoder always finishes the frames it was given
	if err := r.encoder.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to start encoder: %w", err)
	}

	r.wg.Go(func() {
		defer func() {
			close(r.encIn)
			if err := r.encoder.Wait(); err != nil {
				r.setError(err)
			}
			r.config.Logger.Info("recording complete",
				"name", r.config.Name, "pcmBytes", r.BytesWritten(), "mp3Bytes", r.out.Len())
		}()

		for {
			select {
			case data, ok := <-r.input:
				if !ok {
					return
				}
				r.consume(data)

			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (r *Recorder) consume(data []byte) {
	remaining := r.maxBytes - r.bytesWritten.Load()
	if remaining <= 0 {
		return
	}
	if int64(len(data)) > remaining {
		data = data[:remaining]
	}

	r.levels.Write(BytesToInt16(data))
	r.encIn <- data

	if r.bytesWritten.Add(int64(len(data))) >= r.maxBytes {
		r.fullOnce.Do(func() { close(r.full) })
	}
}

// Full is closed once MaxDuration worth of audio has been captured.
func (r *Recorder) Full() <-chan struct{} {
	return r.full
}

// BytesWritten returns the PCM bytes captured so far.
func (r *Recorder) BytesWritten() int64 {
	return r.bytesWritten.Load()
}

// Elapsed returns the captured audio length.
func (r *Recorder) Elapsed() time.Duration {
	samples := r.BytesWritten() / 2
	return time.Duration(samples) * time.Second / time.Duration(r.config.SampleRate)
}

// Progress exposes captured bytes against the cap.
func (r *Recorder) Progress() uictl.CappedDial[int64] {
	return recorderProgress{r: r}
}

// Levels exposes recent samples for the waveform.
func (r *Recorder) Levels() uictl.Levels[int16] {
	return r.levels.Levels(waveformWindow)
}

// Wait blocks until the recording and its encoding complete.
func (r *Recorder) Wait() error {
	r.wg.Wait()
	return r.err
}

// Clip returns the encoded recording. Call after Wait.
func (r *Recorder) Clip() (clip.Raw, error) {
	if err := r.Wait(); err != nil {
		return clip.Raw{}, err
	}
	if r.BytesWritten() == 0 {
		return clip.Raw{}, errors.New("nothing was recorded")
	}

	return clip.Raw{
		Name:     r.config.Name,
		Data:     bytes.Clone(r.out.Bytes()),
		MIMEType: "audio/mpeg",
	}, nil
}

// SaveTo writes the encoded recording to path.
func (r *Recorder) SaveTo(path string) error {
	raw, err := r.Clip()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, raw.Data, 0o600); err != nil {
		return fmt.Errorf("failed to write recording %s: %w", path, err)
	}

	return nil
}

func (r *Recorder) setError(err error) {
	r.errOnce.Do(func() {
		r.err = err
	})
}

type recorderProgress struct {
	r *Recorder
}

func (p recorderProgress) Read() int64 { return p.r.BytesWritten() }

func (p recorderProgress) Cap() (int64, int64) { return p.r.BytesWritten(), p.r.maxBytes }
