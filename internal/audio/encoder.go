package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

const (
	// DefaultBufferThreshold is 4KB = 2048 mono samples, about 93ms @ 22.05kHz.
	DefaultBufferThreshold = 4096
	// DefaultSampleRate is 22.05kHz, the rate the classifier resamples to.
	DefaultSampleRate = 22050
	// DefaultChannels is mono (1 channel).
	DefaultChannels = 1
)

// EncoderConfig configures the MP3 streaming encoder.
type EncoderConfig struct {
	SampleRate int
	// Channels must be 1; samples are widened to stereo for shine-mp3.
	Channels int
	// BufferThreshold is the number of PCM bytes to accumulate before encoding.
	BufferThreshold int
	Logger          *slog.Logger
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.New("sample rate must be positive")
	case c.Channels != 1:
		return errors.New("only mono (1 channel) is supported")
	case c.BufferThreshold <= 0:
		return errors.New("buffer threshold must be positive")
	}

	return nil
}

// WithDefaults fills zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c
}

// StreamingEncoder reads S16LE mono PCM from a channel, buffers it up to a
// threshold and batch-encodes MP3 frames to an io.Writer. It stops when the
// input channel is closed or the context is cancelled, flushing what is left.
type StreamingEncoder struct {
	config EncoderConfig
	input  <-chan []byte
	output io.Writer

	encoder *mp3encoder.Encoder
	buffer  []byte
	encoded atomic.Int64

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewStreamingEncoder creates an encoder; zero config fields take defaults.
func NewStreamingEncoder(
	config EncoderConfig,
	input <-chan []byte,
	output io.Writer,
) (*StreamingEncoder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &StreamingEncoder{ //nolint:exhaustruct // wg, errOnce, err initialized on Start()
		config: config,
		input:  input,
		output: output,
		buffer: make([]byte, 0, config.BufferThreshold),
	}, nil
}

// Start begins the encoding goroutine.
func (e *StreamingEncoder) Start(ctx context.Context) error {
	if e.encoder != nil {
		return errors.New("encoder already started")
	}

	// stereo: shine-mp3 mis-steps through mono input
	e.encoder = mp3encoder.NewEncoder(e.config.SampleRate, 2)

	e.wg.Go(func() {
		defer func() {
			if err := e.Flush(); err != nil {
				e.setError(fmt.Errorf("failed to flush encoder on shutdown: %w", err))
			}
		}()

		for {
			select {
			case data, ok := <-e.input:
				if !ok {
					return
				}

				e.buffer = append(e.buffer, data...)
				if len(e.buffer) >= e.config.BufferThreshold {
					if err := e.encodeBatch(); err != nil {
						e.setError(err)
						return
					}
				}

			case <-ctx.Done():
				e.setError(fmt.Errorf("encoder context cancelled: %w", ctx.Err()))
				return
			}
		}
	})

	return nil
}

// encodeBatch converts buffered PCM to MP3 and clears the buffer.
func (e *StreamingEncoder) encodeBatch() error {
	numSamples := len(e.buffer) / 2
	if numSamples == 0 {
		return nil
	}

	stereo := make([]int16, numSamples*2)
	for i := range numSamples {
		sample := int16(binary.LittleEndian.Uint16(e.buffer[i*2:])) //nolint:gosec // S16LE reinterpretation
		stereo[i*2] = sample
		stereo[i*2+1] = sample
	}

	e.config.Logger.Debug("encoding MP3 batch", "samples", numSamples)

	if err := e.encoder.Write(e.output, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	e.encoded.Add(int64(numSamples * 2))
	// keep a trailing odd byte for the next batch
	e.buffer = append(e.buffer[:0], e.buffer[numSamples*2:]...)

	return nil
}

// Flush encodes any remaining buffered data. Safe to call multiple times.
func (e *StreamingEncoder) Flush() error {
	if err := e.encodeBatch(); err != nil {
		return fmt.Errorf("failed to flush MP3 encoder: %w", err)
	}

	return nil
}

// BytesEncoded returns the number of PCM bytes handed to the MP3 encoder.
func (e *StreamingEncoder) BytesEncoded() int64 {
	return e.encoded.Load()
}

// Wait blocks until encoding completes and returns the first error, if any.
func (e *StreamingEncoder) Wait() error {
	e.wg.Wait()

	return e.err
}

func (e *StreamingEncoder) setError(err error) {
	e.errOnce.Do(func() {
		e.err = err
		e.config.Logger.Debug("streaming encoder error", "error", err)
	})
}
