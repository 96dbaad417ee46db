package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/drumtone/internal/resource"
	"github.com/faiface/beep"
)

const defaultTick = 200 * time.Millisecond

// Listener receives media events. The playback controller implements it.
type Listener interface {
	OnMetadataLoaded(durationSeconds float64) error
	OnTimeAdvanced(positionSeconds float64)
	OnEnded()
	OnMediaError(err error)
}

// Output renders a stream. Start may be called again after Stop with a new stream.
type Output interface {
	Start(rate beep.SampleRate, src beep.Streamer) error
	Stop()
}

// Element decodes a resource handle and plays it through an Output, reporting
// progress back to its Listener. Every load bumps a generation so events from
// a replaced source are dropped.
type Element struct {
	out    Output
	logger *slog.Logger
	tick   time.Duration

	// evMu serializes event delivery with generation changes, so no event
	// from a replaced source is delivered once Load or Unload returns.
	evMu sync.Mutex

	mu       sync.Mutex
	listener Listener
	gen      uint64
	stream   beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	format   beep.Format
	ended    bool
	stop     context.CancelFunc
}

// ElementOption configures an Element.
type ElementOption func(*Element)

// WithTick sets how often time updates are reported while playing.
func WithTick(d time.Duration) ElementOption {
	return func(e *Element) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithElementLogger sets the logger.
func WithElementLogger(logger *slog.Logger) ElementOption {
	return func(e *Element) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewElement creates an element rendering through out.
func NewElement(out Output, opts ...ElementOption) *Element {
	e := &Element{
		out:    out,
		logger: slog.Default(),
		tick:   defaultTick,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Bind sets the event listener. Call before the first Load.
func (e *Element) Bind(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listener = l
}

// Load replaces the current source. Decoding happens in the background and
// ends with either a metadata or an error event.
func (e *Element) Load(src *resource.Handle) {
	e.evMu.Lock()
	e.mu.Lock()
	release := e.detachLocked()
	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.stop = cancel
	e.mu.Unlock()
	e.evMu.Unlock()

	release()
	go e.load(ctx, gen, src)
}

func (e *Element) load(ctx context.Context, gen uint64, src *resource.Handle) {
	rc, err := src.Open()
	if err != nil {
		e.fail(gen, &MediaError{Op: "open", Source: src.Name(), Err: err})
		return
	}

	stream, format, err := Decode(rc, src.Ext())
	if err != nil {
		_ = rc.Close()
		e.fail(gen, &MediaError{Op: "decode", Source: src.Name(), Err: err})

		return
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		_ = stream.Close()

		return
	}
	e.stream = stream
	e.format = format
	e.ctrl = &beep.Ctrl{Streamer: stream, Paused: true}
	e.ended = false
	e.mu.Unlock()

	if err := e.out.Start(format.SampleRate, &generationStreamer{e: e, gen: gen}); err != nil {
		e.fail(gen, &MediaError{Op: "output", Source: src.Name(), Err: err})
		return
	}

	e.mu.Lock()
	stale := e.gen != gen
	e.mu.Unlock()
	if stale {
		e.out.Stop()
		return
	}

	duration := format.SampleRate.D(stream.Len()).Seconds()
	e.logger.Debug("media loaded", "source", src.Name(), "duration", duration, "rate", format.SampleRate)

	e.emit(gen, func(l Listener) {
		if err := l.OnMetadataLoaded(duration); err != nil {
			e.logger.Debug("metadata rejected", "error", err)
		}
	})

	go e.track(ctx, gen)
}

// track reports the position while playing until the source is replaced.
func (e *Element) track(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reportPosition(gen)
		}
	}
}

// reportPosition reads and delivers the position under one lock, so a Seek
// can never land between the two and leave a stale position in flight.
// Listeners must not call back into the element from OnTimeAdvanced.
func (e *Element) reportPosition(gen uint64) {
	e.evMu.Lock()
	defer e.evMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gen != gen || e.ctrl == nil || e.ctrl.Paused || e.listener == nil {
		return
	}
	e.listener.OnTimeAdvanced(e.format.SampleRate.D(e.stream.Position()).Seconds())
}

func (e *Element) fail(gen uint64, err error) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	release := e.detachLocked()
	e.mu.Unlock()

	release()
	e.logger.Debug("media error", "error", err)
	e.emit(gen, func(l Listener) { l.OnMediaError(err) })
}

// emit delivers an event unless gen has been replaced.
func (e *Element) emit(gen uint64, fn func(Listener)) {
	e.evMu.Lock()
	defer e.evMu.Unlock()

	e.mu.Lock()
	current := e.gen == gen
	listener := e.listener
	e.mu.Unlock()

	if current && listener != nil {
		fn(listener)
	}
}

// Play resumes rendering.
func (e *Element) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	e.ctrl.Paused = false
	e.ended = false
}

// Pause holds rendering at the current position.
func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	e.ctrl.Paused = true
}

// Seek moves the read position. Out of range targets are clamped.
func (e *Element) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return
	}

	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	n = min(max(n, 0), e.stream.Len())
	if err := e.stream.Seek(n); err != nil {
		e.logger.Debug("seek failed", "target", seconds, "error", err)
		return
	}
	e.ended = false
}

// Unload stops rendering and drops the source.
func (e *Element) Unload() {
	e.evMu.Lock()
	e.mu.Lock()
	e.gen++
	release := e.detachLocked()
	e.mu.Unlock()
	e.evMu.Unlock()

	release()
}

// Close releases the output.
func (e *Element) Close() {
	e.Unload()
}

// detachLocked drops the current source and returns the cleanup to run once
// the lock is released, since the output may be blocked in streamGen.
func (e *Element) detachLocked() func() {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}

	stream := e.stream
	e.stream = nil
	e.ctrl = nil
	e.ended = false

	return func() {
		if stream != nil {
			e.out.Stop()
			_ = stream.Close()
		}
	}
}

// streamGen fills samples from the current source. The output keeps pulling
// after the end of the source, so silence is returned rather than !ok.
func (e *Element) streamGen(gen uint64, samples [][2]float64) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gen != gen || e.ctrl == nil {
		silence(samples)
		return len(samples), true
	}

	n, ok := e.ctrl.Stream(samples)
	if n < len(samples) || !ok {
		silence(samples[n:])
		if !e.ctrl.Paused && !e.ended {
			e.ended = true
			e.ctrl.Paused = true
			go e.fireEnded(gen)
		}
	}

	return len(samples), true
}

func (e *Element) fireEnded(gen uint64) {
	e.emit(gen, func(l Listener) { l.OnEnded() })
}

type generationStreamer struct {
	e   *Element
	gen uint64
}

func (g *generationStreamer) Stream(samples [][2]float64) (int, bool) {
	return g.e.streamGen(g.gen, samples)
}

func (g *generationStreamer) Err() error { return nil }

func silence(samples [][2]float64) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
}
