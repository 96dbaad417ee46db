// Package health determines whether the classification backend can accept submissions.
package health

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/pkg/channels"
)

const (
	ReasonOffline       = "Cannot connect to API. Backend may be offline."
	ReasonNotConfigured = "Backend API not configured."
	ReasonModelMissing  = "Model not loaded"
)

// Checker is the backend surface the probe needs.
type Checker interface {
	Health(ctx context.Context) (prediction.Health, error)
}

// Probe runs the availability check and remembers the last result.
// It never retries; recovery is a user action.
type Probe struct {
	checker Checker
	logger  *slog.Logger
	notify  *channels.Broadcaster[prediction.Availability]

	mu      sync.RWMutex
	current prediction.Availability
	done    chan struct{}
	once    sync.Once
}

// NewProbe creates a probe. A nil checker means no backend is configured.
func NewProbe(checker Checker, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}

	return &Probe{
		checker: checker,
		logger:  logger,
		notify:  channels.NewBroadcaster[prediction.Availability](),
		done:    make(chan struct{}),
	}
}

// Subscribe registers ch for availability updates. Call before Start.
func (p *Probe) Subscribe(ch chan<- prediction.Availability) error {
	return p.notify.Subscribe(ch)
}

// Start runs a single check in the background. Other work is never blocked on it.
func (p *Probe) Start(ctx context.Context) {
	p.once.Do(func() {
		if err := p.notify.Start(ctx); err != nil {
			p.logger.Warn("availability notifications disabled", "error", err)
		}

		go func() {
			defer close(p.done)
			p.Check(ctx)
		}()
	})
}

// Done is closed once the check started by Start has resolved.
func (p *Probe) Done() <-chan struct{} {
	return p.done
}

// Check queries the backend, stores and publishes the resulting availability.
func (p *Probe) Check(ctx context.Context) prediction.Availability {
	avail := p.evaluate(ctx)

	p.mu.Lock()
	p.current = avail
	p.mu.Unlock()

	p.logger.Info("backend availability", "status", avail.Status.String(), "reason", avail.Reason)
	_ = p.notify.Publish(avail)

	return avail
}

func (p *Probe) evaluate(ctx context.Context) prediction.Availability {
	if p.checker == nil {
		return prediction.Availability{Status: prediction.StatusOffline, Reason: ReasonNotConfigured}
	}

	h, err := p.checker.Health(ctx)
	if err != nil {
		p.logger.Debug("health check failed", "error", err)
		return prediction.Availability{Status: prediction.StatusOffline, Reason: ReasonOffline}
	}

	if !h.ModelLoaded {
		reason := h.Message
		if reason == "" {
			reason = ReasonModelMissing
		}

		return prediction.Availability{Status: prediction.StatusModelNotLoaded, Reason: reason}
	}

	return prediction.Availability{Status: prediction.StatusReady}
}

// Availability returns the last known availability. Unknown until the first check resolves.
func (p *Probe) Availability() prediction.Availability {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.current
}

// Available reports whether submissions are currently permitted.
func (p *Probe) Available() bool {
	return p.Availability().Available()
}
