// Package session wires availability, clip selection, submission and playback
// into the single workflow a UI drives.
//
// Input is gated on the backend being available and no submission pending. A
// successful submission hands the armed clip's handle to playback; a failed one
// disarms the clip and releases its handle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/health"
	"github.com/alkime/drumtone/internal/playback"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/resource"
	"github.com/alkime/drumtone/internal/selector"
	"github.com/alkime/drumtone/internal/submission"
	"github.com/alkime/drumtone/pkg/channels"
)

// ErrClosed is returned by actions on a closed session.
var ErrClosed = errors.New("session closed")

// Snapshot is what a UI renders. Each part is an atomic view of its controller.
type Snapshot struct {
	Availability prediction.Availability
	Armed        clip.File
	Submission   submission.State
	Playback     playback.Snapshot
}

// InputEnabled reports whether selection and submission are accepted.
func (s Snapshot) InputEnabled() bool {
	return s.Availability.Available() && !s.Submission.IsPending()
}

// CanSubmit reports whether the confirm action is usable.
func (s Snapshot) CanSubmit() bool {
	return s.InputEnabled() && !s.Armed.IsZero()
}

// Config holds the collaborators of a Session.
type Config struct {
	Predictor submission.Predictor
	// Checker is nil when no backend is configured.
	Checker health.Checker
	Media   playback.Media
	Logger  *slog.Logger
}

// Session owns the controllers of one workflow.
type Session struct {
	logger *slog.Logger

	scope      *resource.Scope
	probe      *health.Probe
	selector   *selector.Selector
	submission *submission.Controller
	playback   *playback.Controller
	notify     *channels.Broadcaster[Snapshot]

	// mu orders user actions against the settle hook.
	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	startOnce sync.Once
}

// New creates a session. Call Start before driving it.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		logger: logger,
		notify: channels.NewBroadcaster[Snapshot](),
	}
	s.scope = resource.NewScope(logger)
	s.probe = health.NewProbe(cfg.Checker, logger)
	s.selector = selector.New(s.scope, s.inputEnabled, logger)
	s.submission = submission.New(cfg.Predictor,
		submission.WithAvailability(s.probe.Available),
		submission.WithSettleHook(s.settled),
		submission.WithLogger(logger),
	)
	s.playback = playback.New(cfg.Media, logger)

	return s
}

// Subscribe registers ch for snapshots. Call before Start.
func (s *Session) Subscribe(ch chan<- Snapshot) error {
	return s.notify.Subscribe(ch)
}

// Start starts the controllers and fires the one-off availability check.
func (s *Session) Start(ctx context.Context) error {
	var err error
	s.startOnce.Do(func() { err = s.start(ctx) })

	return err
}

func (s *Session) start(ctx context.Context) error {
	avail := make(chan prediction.Availability, 4)
	states := make(chan submission.State, 16)
	plays := make(chan playback.Snapshot, 64)

	if err := s.probe.Subscribe(avail); err != nil {
		return fmt.Errorf("subscribe availability: %w", err)
	}
	if err := s.submission.Subscribe(states); err != nil {
		return fmt.Errorf("subscribe submission: %w", err)
	}
	if err := s.playback.Subscribe(plays); err != nil {
		return fmt.Errorf("subscribe playback: %w", err)
	}

	if err := s.submission.Start(ctx); err != nil {
		return fmt.Errorf("start submission: %w", err)
	}
	if err := s.playback.Start(ctx); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	if err := s.notify.Start(ctx); err != nil {
		return fmt.Errorf("start session notifications: %w", err)
	}

	s.wg.Go(func() {
		s.forward(ctx, avail, states, plays)
	})
	s.probe.Start(ctx)

	return nil
}

// forward republishes a full snapshot whenever any controller changes.
func (s *Session) forward(
	ctx context.Context,
	avail <-chan prediction.Availability,
	states <-chan submission.State,
	plays <-chan playback.Snapshot,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-avail:
		case <-states:
		case <-plays:
		}
		s.publish()
	}
}

func (s *Session) publish() {
	_ = s.notify.Publish(s.Snapshot())
}

// Ready is closed once the startup availability check has resolved.
func (s *Session) Ready() <-chan struct{} {
	return s.probe.Done()
}

// Snapshot returns the current workflow state.
func (s *Session) Snapshot() Snapshot {
	armed, _, _ := s.selector.Armed()

	return Snapshot{
		Availability: s.probe.Availability(),
		Armed:        armed,
		Submission:   s.submission.State(),
		Playback:     s.playback.Snapshot(),
	}
}

func (s *Session) inputEnabled() bool {
	return s.probe.Available() && !s.submission.State().IsPending()
}

// Select arms the first candidate. A new selection clears the previous result
// and stops playback of the previous clip.
func (s *Session) Select(candidates ...clip.Raw) (clip.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return clip.File{}, ErrClosed
	}
	if err := s.selector.Check(candidates...); err != nil {
		return clip.File{}, err
	}

	s.playback.Unload()
	s.submission.Reset()

	file, err := s.selector.Select(candidates...)
	if err != nil {
		return clip.File{}, err
	}
	s.publish()

	return file, nil
}

// Clear disarms the selected clip without submitting. The submission state is kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.Unload()
	s.selector.Clear()
	s.publish()
}

// Reset returns to a fresh selection: no clip, no result, no playback.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submission.State().IsPending() {
		return
	}

	s.playback.Unload()
	s.submission.Reset()
	s.selector.Clear()
	s.publish()
}

// Submit sends the armed clip. Refusals while disabled are reported as an
// InputDisabled rejection that also matches the submission sentinel.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	file, _, ok := s.selector.Armed()
	if !s.probe.Available() {
		return &selector.Rejection{Reason: selector.InputDisabled, Name: file.Name()}
	}
	if !ok {
		return submission.ErrNoFile
	}

	err := s.submission.Submit(file)
	if errors.Is(err, submission.ErrPending) || errors.Is(err, submission.ErrUnavailable) {
		return fmt.Errorf("%w: %w", &selector.Rejection{Reason: selector.InputDisabled, Name: file.Name()}, err)
	}

	return err
}

// Recheck runs the availability check again. Recovery is always user initiated.
func (s *Session) Recheck(ctx context.Context) prediction.Availability {
	return s.probe.Check(ctx)
}

// Playback exposes the player for play/pause and seek.
func (s *Session) Playback() *playback.Controller {
	return s.playback
}

// Scope exposes the handle bookkeeping.
func (s *Session) Scope() *resource.Scope {
	return s.scope
}

func (s *Session) settled(st submission.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	switch st.Kind() {
	case submission.Succeeded:
		armed, h, ok := s.selector.Armed()
		if ok && armed.ID() == st.File().ID() {
			s.playback.Load(h)
		}
	case submission.Failed:
		if s.selector.ClearIf(st.File()) {
			s.logger.Debug("failed clip disarmed", "file", st.File().Name())
		}
	}
	s.publish()
}

// Close stops playback and releases every handle. Completions arriving later
// are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	s.playback.Unload()
	s.selector.Clear()
	s.scope.Close()
	s.logger.Debug("session closed",
		"acquired", s.scope.Acquired(), "released", s.scope.ReleasedCount(),
		"snapshots_dropped", s.droppedSnapshots())
}

func (s *Session) droppedSnapshots() int {
	dropped := 0
	for _, st := range s.notify.Stats() {
		dropped += st.Dropped
	}

	return dropped
}

// Wait blocks until in-flight requests and the snapshot feed have finished.
// The feed finishes once the Start context is done.
func (s *Session) Wait() {
	s.submission.Wait()
	s.wg.Wait()
}
