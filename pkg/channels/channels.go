// Package channels holds small generic helpers for channel-based notification.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")

	ErrAlreadyStarted = errors.New("broadcaster already started")
	ErrNotStarted     = errors.New("broadcaster not started")
	ErrNoSubscribers  = errors.New("no subscribers available")
)
