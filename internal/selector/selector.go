// Package selector arms a single audio clip for submission.
package selector

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/resource"
	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
)

// Reason classifies a local rejection. Rejections never reach the backend.
type Reason int

const (
	// WrongType means the candidate is not one of the accepted audio types.
	WrongType Reason = iota + 1
	// InputDisabled means the backend is unavailable or a submission is pending.
	InputDisabled
)

func (r Reason) String() string {
	switch r {
	case WrongType:
		return "wrong type"
	case InputDisabled:
		return "input disabled"
	default:
		return "unknown"
	}
}

var (
	ErrWrongType     = errors.New("file type not accepted")
	ErrInputDisabled = errors.New("input disabled")
	ErrNoCandidate   = errors.New("no file selected")
)

// Rejection is returned when a selection or submission is refused locally.
type Rejection struct {
	Reason Reason
	Name   string
}

func (r *Rejection) Error() string {
	if r.Name == "" {
		return "rejected: " + r.Reason.String()
	}

	return fmt.Sprintf("rejected %s: %s", r.Name, r.Reason)
}

// Is lets callers match a Rejection against ErrWrongType and ErrInputDisabled.
func (r *Rejection) Is(target error) bool {
	switch target {
	case ErrWrongType:
		return r.Reason == WrongType
	case ErrInputDisabled:
		return r.Reason == InputDisabled
	default:
		return false
	}
}

// Selector holds at most one armed clip and its playable handle.
type Selector struct {
	mu      sync.Mutex
	scope   *resource.Scope
	enabled func() bool
	logger  *slog.Logger

	armed  clip.File
	handle *resource.Handle
}

// New creates a Selector. enabled is consulted on every Select; nil means always enabled.
func New(scope *resource.Scope, enabled func() bool, logger *slog.Logger) *Selector {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Selector{
		scope:   scope,
		enabled: enabled,
		logger:  logger,
	}
}

// Check reports whether Select would accept candidates, without arming anything.
func (s *Selector) Check(candidates ...clip.Raw) error {
	if !s.enabled() {
		name := ""
		if len(candidates) > 0 {
			name = candidates[0].Name
		}

		return &Rejection{Reason: InputDisabled, Name: name}
	}

	if len(candidates) == 0 {
		return ErrNoCandidate
	}
	if !clip.Accepted(candidates[0].Ext()) {
		return &Rejection{Reason: WrongType, Name: candidates[0].Name}
	}

	return nil
}

// Select validates the first candidate and arms it. Extra candidates are ignored.
// The previously armed clip is discarded and its handle released.
func (s *Selector) Select(candidates ...clip.Raw) (clip.File, error) {
	if err := s.Check(candidates...); err != nil {
		return clip.File{}, err
	}
	if len(candidates) > 1 {
		s.logger.Debug("ignoring extra candidates", "count", len(candidates)-1)
	}

	raw := candidates[0]
	file := clip.New(raw.Name, detectMIME(raw), readTitle(raw), raw.Data)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Acquire releases the previous clip's handle.
	s.armed = file
	s.handle = s.scope.Acquire(file)
	s.logger.Info("file armed", "name", file.Name(), "size", file.Size(), "mime", file.MIMEType())

	return file, nil
}

// Clear disarms the current clip and releases its handle. Idempotent.
func (s *Selector) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

// ClearIf clears only while file is still the armed clip, so a late failure
// for an old clip cannot disarm a newer selection.
func (s *Selector) ClearIf(file clip.File) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed.IsZero() || s.armed.ID() != file.ID() {
		return false
	}
	s.clearLocked()

	return true
}

func (s *Selector) clearLocked() {
	if s.handle != nil {
		s.scope.Release(s.handle)
	}
	s.armed = clip.File{}
	s.handle = nil
}

// Armed returns the armed clip and its handle, if any.
func (s *Selector) Armed() (clip.File, *resource.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.armed, s.handle, !s.armed.IsZero()
}

// Enabled reports whether input is currently accepted.
func (s *Selector) Enabled() bool {
	return s.enabled()
}

func detectMIME(raw clip.Raw) string {
	if strings.HasPrefix(raw.MIMEType, "audio/") {
		return raw.MIMEType
	}

	if m := mimetype.Detect(raw.Data); strings.HasPrefix(m.String(), "audio/") {
		return m.String()
	}

	return clip.CanonicalMIME(raw.Ext())
}

func readTitle(raw clip.Raw) string {
	md, err := tag.ReadFrom(bytes.NewReader(raw.Data))
	if err != nil {
		return ""
	}

	return md.Title()
}
