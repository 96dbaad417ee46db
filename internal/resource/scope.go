// Package resource manages playable handles bound to armed clips.
//
// A Scope hands out at most one live Handle per clip instance and releases the
// previous handle whenever a different clip is acquired. Release is idempotent;
// Close releases everything still live.
package resource

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/google/uuid"
)

// ErrReleased is returned when opening a handle that has been released.
var ErrReleased = errors.New("resource handle released")

// Handle is an opaque reference to the playable bytes of one clip.
type Handle struct {
	id       uuid.UUID
	file     clip.File
	released atomic.Bool
}

// ID returns the handle identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// Name returns the name of the clip behind the handle.
func (h *Handle) Name() string { return h.file.Name() }

// Ext returns the lower-cased extension of the clip behind the handle.
func (h *Handle) Ext() string { return h.file.Ext() }

// FileID returns the identity of the clip the handle is bound to.
func (h *Handle) FileID() uuid.UUID { return h.file.ID() }

// Released reports whether the handle has been released.
func (h *Handle) Released() bool { return h.released.Load() }

// Open returns a reader over the clip payload.
func (h *Handle) Open() (io.ReadSeekCloser, error) {
	if h.released.Load() {
		return nil, ErrReleased
	}

	return &handleReader{ReadSeeker: h.file.Reader(), h: h}, nil
}

type handleReader struct {
	io.ReadSeeker
	h *Handle
}

func (r *handleReader) Read(p []byte) (int, error) {
	if r.h.released.Load() {
		return 0, ErrReleased
	}

	return r.ReadSeeker.Read(p)
}

func (r *handleReader) Close() error { return nil }

// Scope owns handle lifetimes.
type Scope struct {
	mu       sync.Mutex
	live     map[uuid.UUID]*Handle // keyed by clip ID
	acquired atomic.Int64
	released atomic.Int64
	logger   *slog.Logger
}

// NewScope creates an empty scope.
func NewScope(logger *slog.Logger) *Scope {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scope{
		live:   make(map[uuid.UUID]*Handle),
		logger: logger,
	}
}

// Acquire returns the live handle for file, creating one if needed.
// Handles bound to any other clip are released first.
func (s *Scope) Acquire(file clip.File) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.live[file.ID()]; ok {
		return h
	}

	for id, h := range s.live {
		s.releaseLocked(h)
		delete(s.live, id)
	}

	h := &Handle{id: uuid.New(), file: file}
	s.live[file.ID()] = h
	s.acquired.Add(1)
	s.logger.Debug("resource acquired", "handle", h.id, "file", file.Name())

	return h
}

// Release releases h. Calling it again, or with nil, is a no-op.
func (s *Scope) Release(h *Handle) {
	if h == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.live[h.file.ID()]; ok && cur == h {
		delete(s.live, h.file.ID())
	}
	s.releaseLocked(h)
}

func (s *Scope) releaseLocked(h *Handle) {
	if h.released.CompareAndSwap(false, true) {
		s.released.Add(1)
		s.logger.Debug("resource released", "handle", h.id, "file", h.file.Name())
	}
}

// Close releases every live handle.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range s.live {
		s.releaseLocked(h)
		delete(s.live, id)
	}
}

// Live returns the number of handles not yet released.
func (s *Scope) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.live)
}

// Acquired returns the total number of handles ever created.
func (s *Scope) Acquired() int64 { return s.acquired.Load() }

// ReleasedCount returns the total number of handles released.
func (s *Scope) ReleasedCount() int64 { return s.released.Load() }

// Bytes reads the whole payload behind h.
func Bytes(h *Handle) ([]byte, error) {
	rc, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
