package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// defaultPublishTimeout bounds how long Publish waits for room on the input channel.
const defaultPublishTimeout = 250 * time.Millisecond

type subscriber[T any] struct {
	ch       chan<- T
	timeout  time.Duration // zero means non-blocking
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	if s.timeout > 0 {
		err = SendWithTimeout(s.ch, msg, s.timeout)
	} else {
		err = SendNonBlock(s.ch, msg)
	}
	if err == nil {
		return
	}

	s.dropped.Add(1)
	if errors.Is(err, ErrChannelClosed) {
		s.inactive.Store(true)
	}
}

// Broadcaster fans state updates out from its owner to subscriber channels.
//
// Subscribers are registered before Start. A subscriber that cannot keep up
// loses messages rather than stalling the owner; a closed subscriber channel
// is marked inactive. Cancelling the Start context drains what was already
// published and then stops.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	input       chan T
	claimed     atomic.Bool // set once Start is called
	started     atomic.Bool // set once input is ready
	wg          sync.WaitGroup
}

// NewBroadcaster creates an unstarted Broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe registers ch. By default sends never block and full channels drop
// the message. WithSendTimeout lets a slow subscriber catch up.
func (f *Broadcaster[T]) Subscribe(ch chan<- T, opts ...Option) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}
	if f.claimed.Load() {
		return ErrAlreadyStarted
	}

	sub := &subscriber[T]{ch: ch}
	for _, opt := range opts {
		if err := opt(&sub.timeout); err != nil {
			return err
		}
	}
	f.subscribers = append(f.subscribers, sub)

	return nil
}

// Option configures a subscription.
type Option func(timeout *time.Duration) error

// WithSendTimeout waits up to d for room in the subscriber channel.
func WithSendTimeout(d time.Duration) Option {
	return func(timeout *time.Duration) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		*timeout = d

		return nil
	}
}

// Start begins delivering published messages until ctx is done.
// Starting without subscribers is allowed; Publish then reports ErrNoSubscribers.
func (f *Broadcaster[T]) Start(ctx context.Context) error {
	if !f.claimed.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if len(f.subscribers) == 0 {
		f.started.Store(true)
		return nil
	}

	f.input = make(chan T, len(f.subscribers)*8)

	f.wg.Go(func() {
		for msg := range f.input {
			for _, sub := range f.subscribers {
				sub.send(msg)
			}
		}
	})

	f.started.Store(true)

	go func() {
		<-ctx.Done()
		close(f.input)
	}()

	return nil
}

// Publish hands msg to the running broadcaster. Owners publish
// unconditionally and usually ignore the error.
func (f *Broadcaster[T]) Publish(msg T) error {
	if !f.started.Load() {
		return ErrNotStarted
	}
	if f.input == nil {
		return ErrNoSubscribers
	}

	return SendWithTimeout(f.input, msg, defaultPublishTimeout)
}

// Wait blocks until delivery has stopped after the Start context is done.
func (f *Broadcaster[T]) Wait() {
	f.wg.Wait()
}

type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats reports per-subscriber delivery, in subscription order.
func (f *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(f.subscribers))
	for _, sub := range f.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
