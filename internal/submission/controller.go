// Package submission owns the request lifecycle of a clip classification.
//
// At most one request is in flight. A second Submit while pending is refused,
// never queued or coalesced, and the first request always wins.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/pkg/channels"
)

// GenericFailure is shown when the backend supplied no detail message.
const GenericFailure = "Error processing audio file"

var (
	ErrPending     = errors.New("a submission is already pending")
	ErrUnavailable = errors.New("backend unavailable")
	ErrNoFile      = errors.New("no file to submit")
)

// Predictor classifies a clip.
type Predictor interface {
	Predict(ctx context.Context, file clip.File) (prediction.Result, error)
}

// detailer is implemented by errors that carry a server-supplied message.
type detailer interface {
	ServerDetail() string
}

// Controller is the single mutation path for the submission state.
type Controller struct {
	predictor Predictor
	available func() bool
	settled   func(State)
	logger    *slog.Logger
	notify    *channels.Broadcaster[State]

	mu    sync.Mutex
	state State
	seq   uint64
	ctx   context.Context
	wg    sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithAvailability gates Submit on the given check.
func WithAvailability(available func() bool) Option {
	return func(c *Controller) {
		if available != nil {
			c.available = available
		}
	}
}

// WithSettleHook is called synchronously, outside the lock, after a request
// settles into Succeeded or Failed. Stale completions are not reported.
func WithSettleHook(fn func(State)) Option {
	return func(c *Controller) {
		c.settled = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an Idle controller.
func New(predictor Predictor, opts ...Option) *Controller {
	c := &Controller{
		predictor: predictor,
		available: func() bool { return true },
		logger:    slog.Default(),
		notify:    channels.NewBroadcaster[State](),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Subscribe registers ch for state snapshots. Call before Start.
func (c *Controller) Subscribe(ch chan<- State) error {
	return c.notify.Subscribe(ch)
}

// Start begins publishing snapshots. Requests issued afterwards inherit ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	return c.notify.Start(ctx)
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Submit moves to Pending and sends file to the backend in the background.
// It refuses while a request is pending or the backend is unavailable, leaving
// the state untouched.
func (c *Controller) Submit(file clip.File) error {
	if file.IsZero() {
		return ErrNoFile
	}

	c.mu.Lock()
	if c.state.IsPending() {
		c.mu.Unlock()
		c.logger.Debug("submit refused while pending", "file", file.Name())

		return ErrPending
	}
	if !c.available() {
		c.mu.Unlock()
		return ErrUnavailable
	}

	c.seq++
	seq := c.seq
	ctx := c.ctx
	c.setLocked(pending(seq, file))
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("submitting clip", "file", file.Name(), "size", file.Size(), "seq", seq)

	go func() {
		defer c.wg.Done()

		result, err := c.predictor.Predict(ctx, file)
		c.complete(seq, file, result, err)
	}()

	return nil
}

func (c *Controller) complete(seq uint64, file clip.File, result prediction.Result, err error) {
	var next State
	if err != nil {
		next = failed(seq, file, ErrorInfo{Message: failureMessage(err), Err: err})
	} else {
		next = succeeded(seq, file, result)
	}

	c.mu.Lock()
	if c.seq != seq || !c.state.IsPending() {
		c.mu.Unlock()
		c.logger.Debug("discarding stale completion", "seq", seq, "file", file.Name())

		return
	}
	c.setLocked(next)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("submission failed", "file", file.Name(), "error", err)
	} else {
		c.logger.Info("submission succeeded", "file", file.Name(),
			"label", result.Label(), "confidence", result.Confidence())
	}

	if c.settled != nil {
		c.settled(next)
	}
}

// Reset returns to Idle from any state. A request still in flight is not
// cancelled, but its completion is discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Kind() == Idle {
		return
	}

	c.seq++
	c.setLocked(idle(c.seq))
}

// Wait blocks until every request issued so far has completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) setLocked(s State) {
	c.state = s
	_ = c.notify.Publish(s)
}

func failureMessage(err error) string {
	var d detailer
	if errors.As(err, &d) {
		if msg := strings.TrimSpace(d.ServerDetail()); msg != "" {
			return msg
		}
	}

	return GenericFailure
}
