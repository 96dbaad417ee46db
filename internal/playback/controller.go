// Package playback keeps the replay state of the submitted clip in step with an
// asynchronous media element.
//
// User intent (Load, Toggle, Seek, Unload) and media events (metadata, time,
// ended, error) go through one mutex; the media element is driven outside it.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/alkime/drumtone/internal/resource"
	"github.com/alkime/drumtone/pkg/channels"
)

// Status is the playback state machine position.
type Status int

const (
	NoSource Status = iota
	Ready
	Playing
	Paused
	Errored
)

func (s Status) String() string {
	switch s {
	case NoSource:
		return "no source"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Errored:
		return "errored"
	default:
		return "invalid"
	}
}

var (
	ErrNoSource       = errors.New("no playback source loaded")
	ErrMediaErrored   = errors.New("media failed to load")
	ErrMetadataLoaded = errors.New("metadata already loaded for this source")
)

// Media is the element that actually decodes and plays audio. Its event
// callbacks come back through the Controller's On* methods.
type Media interface {
	Load(src *resource.Handle)
	Play()
	Pause()
	Seek(seconds float64)
	Unload()
}

// Snapshot is an atomic view of the playback state.
type Snapshot struct {
	Status   Status
	Position float64
	Duration float64
	Source   string
	Err      error
}

// IsPlaying reports whether audio is advancing.
func (s Snapshot) IsPlaying() bool { return s.Status == Playing }

// ControlsEnabled reports whether play/pause and seek are usable.
func (s Snapshot) ControlsEnabled() bool {
	return s.Status != NoSource && s.Status != Errored
}

// Controller is the playback state machine.
type Controller struct {
	media  Media
	logger *slog.Logger
	notify *channels.Broadcaster[Snapshot]

	mu         sync.Mutex
	state      Snapshot
	metaLoaded bool
	seeking    int // seeks handed to the media and not yet returned
}

// New creates a controller with no source.
func New(media Media, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		media:  media,
		logger: logger,
		notify: channels.NewBroadcaster[Snapshot](),
	}
}

// Subscribe registers ch for snapshots. Call before Start.
func (c *Controller) Subscribe(ch chan<- Snapshot) error {
	return c.notify.Subscribe(ch)
}

// Start begins publishing snapshots.
func (c *Controller) Start(ctx context.Context) error {
	return c.notify.Start(ctx)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Load binds a new source from any state. Position resets to 0 and the
// duration stays unknown until the metadata event.
func (c *Controller) Load(src *resource.Handle) {
	if src == nil {
		c.Unload()
		return
	}

	// Unloading first guarantees no event of the old source lands after the reset.
	if c.Snapshot().Status != NoSource {
		c.media.Unload()
	}

	c.mu.Lock()
	c.metaLoaded = false
	c.setLocked(Snapshot{Status: Ready, Source: src.Name()})
	c.mu.Unlock()

	c.logger.Debug("playback source loaded", "source", src.Name(), "handle", src.ID())
	c.media.Load(src)
}

// Unload drops the source.
func (c *Controller) Unload() {
	c.mu.Lock()
	if c.state.Status == NoSource {
		c.mu.Unlock()
		return
	}
	c.metaLoaded = false
	c.setLocked(Snapshot{Status: NoSource})
	c.mu.Unlock()

	c.media.Unload()
}

// Toggle flips between Playing and Paused. No-op without a usable source.
func (c *Controller) Toggle() {
	c.mu.Lock()
	next := c.state
	switch c.state.Status {
	case Ready, Paused:
		next.Status = Playing
	case Playing:
		next.Status = Paused
	default:
		c.mu.Unlock()
		return
	}
	c.setLocked(next)
	c.mu.Unlock()

	if next.Status == Playing {
		c.media.Play()
	} else {
		c.media.Pause()
	}
}

// Seek moves to target clamped to [0, duration]. The position updates
// immediately, before the media confirms.
func (c *Controller) Seek(target float64) (float64, error) {
	c.mu.Lock()
	switch c.state.Status {
	case NoSource:
		c.mu.Unlock()
		return 0, ErrNoSource
	case Errored:
		c.mu.Unlock()
		return 0, ErrMediaErrored
	}

	pos := clamp(target, c.state.Duration)
	next := c.state
	next.Position = pos
	c.setLocked(next)
	c.seeking++
	c.mu.Unlock()

	c.media.Seek(pos)

	c.mu.Lock()
	c.seeking--
	c.mu.Unlock()

	return pos, nil
}

// SeekBy seeks relative to the current position.
func (c *Controller) SeekBy(delta float64) (float64, error) {
	return c.Seek(c.Snapshot().Position + delta)
}

// OnMetadataLoaded records the duration. It is accepted once per Load.
func (c *Controller) OnMetadataLoaded(duration float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state.Status == NoSource:
		return ErrNoSource
	case c.state.Status == Errored:
		return ErrMediaErrored
	case c.metaLoaded:
		return ErrMetadataLoaded
	}

	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		duration = 0
	}

	c.metaLoaded = true
	next := c.state
	next.Duration = duration
	next.Position = min(next.Position, duration)
	c.setLocked(next)

	return nil
}

// OnTimeAdvanced records playback progress. Reports behind the current
// position are ignored; only Seek moves backwards. Reports arriving while a
// seek is being applied may predate it and are dropped.
func (c *Controller) OnTimeAdvanced(position float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seeking > 0 || !c.state.ControlsEnabled() || math.IsNaN(position) || position <= c.state.Position {
		return
	}

	next := c.state
	if c.metaLoaded {
		position = min(position, next.Duration)
	}
	next.Position = position
	c.setLocked(next)
}

// OnEnded parks the source at the start, paused.
func (c *Controller) OnEnded() {
	c.mu.Lock()
	if !c.state.ControlsEnabled() {
		c.mu.Unlock()
		return
	}

	next := c.state
	next.Status = Paused
	next.Position = 0
	c.setLocked(next)
	c.mu.Unlock()

	c.media.Seek(0)
}

// OnMediaError disables playback until the next Load.
func (c *Controller) OnMediaError(err error) {
	c.mu.Lock()
	if c.state.Status == NoSource {
		c.mu.Unlock()
		return
	}

	next := c.state
	next.Status = Errored
	next.Err = err
	c.setLocked(next)
	c.mu.Unlock()

	c.logger.Warn("playback media error", "source", next.Source, "error", err)
}

func (c *Controller) setLocked(s Snapshot) {
	c.state = s
	_ = c.notify.Publish(s)
}

func clamp(t, duration float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}

	return min(t, duration)
}
