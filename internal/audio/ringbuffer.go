package audio

import (
	"encoding/binary"
	"sync"

	"github.com/alkime/drumtone/pkg/uictl"
)

// SampleRingBuffer keeps the most recent int16 samples of a capture so the
// waveform can be drawn while recording. One writer, many readers.
type SampleRingBuffer struct {
	mu      sync.RWMutex
	samples []int16
	head    int // next write position
	count   int // valid samples, up to capacity
}

// NewSampleRingBuffer creates a ring buffer with the given capacity.
func NewSampleRingBuffer(capacity int) *SampleRingBuffer {
	return &SampleRingBuffer{samples: make([]int16, capacity)}
}

// Write appends samples, overwriting the oldest once full.
func (b *SampleRingBuffer) Write(samples []int16) {
	if len(samples) == 0 || len(b.samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.samples)
	// only the tail can survive a write longer than the buffer
	if len(samples) > capacity {
		samples = samples[len(samples)-capacity:]
	}

	for _, sample := range samples {
		b.samples[b.head] = sample
		b.head = (b.head + 1) % capacity
	}
	b.count = min(b.count+len(samples), capacity)
}

// ReadSamples returns up to n most recent samples, oldest first.
func (b *SampleRingBuffer) ReadSamples(n int) []int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 || n <= 0 {
		return nil
	}

	n = min(n, b.count)
	capacity := len(b.samples)
	start := (b.head - n + capacity) % capacity

	result := make([]int16, n)
	for i := range n {
		result[i] = b.samples[(start+i)%capacity]
	}

	return result
}

// Count returns the number of valid samples in the buffer.
func (b *SampleRingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.count
}

// Levels exposes the last window samples as a uictl.Levels.
func (b *SampleRingBuffer) Levels(window int) uictl.Levels[int16] {
	return ringLevels{b: b, window: window}
}

type ringLevels struct {
	b      *SampleRingBuffer
	window int
}

func (l ringLevels) Read() []int16 { return l.b.ReadSamples(l.window) }

// BytesToInt16 converts S16LE bytes to samples. A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return nil
	}

	samples := make([]int16, numSamples)
	for i := range numSamples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:])) //nolint:gosec // S16LE reinterpretation
	}

	return samples
}
