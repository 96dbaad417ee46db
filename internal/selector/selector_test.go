package selector_test

import (
	"errors"
	"testing"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/resource"
	"github.com/alkime/drumtone/internal/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(name string) clip.Raw {
	return clip.Raw{Name: name, Data: []byte("not really audio")}
}

func TestSelectArmsFirstCandidate(t *testing.T) {
	scope := resource.NewScope(nil)
	s := selector.New(scope, nil, nil)

	f, err := s.Select(raw("clip.wav"), raw("other.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "clip.wav", f.Name())
	assert.Equal(t, "audio/wav", f.MIMEType())

	armed, h, ok := s.Armed()
	require.True(t, ok)
	assert.Equal(t, f.ID(), armed.ID())
	require.NotNil(t, h)
	assert.Equal(t, f.ID(), h.FileID())
	assert.Equal(t, 1, scope.Live())
}

func TestSelectWrongType(t *testing.T) {
	scope := resource.NewScope(nil)
	s := selector.New(scope, nil, nil)

	_, err := s.Select(raw("notes.txt"))
	require.ErrorIs(t, err, selector.ErrWrongType)

	var rej *selector.Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, selector.WrongType, rej.Reason)

	_, _, ok := s.Armed()
	assert.False(t, ok)
	assert.Equal(t, 0, scope.Live())
}

func TestSelectRejectionKeepsPreviousArmed(t *testing.T) {
	s := selector.New(resource.NewScope(nil), nil, nil)

	f, err := s.Select(raw("a.wav"))
	require.NoError(t, err)

	_, err = s.Select(raw("b.flac"))
	require.ErrorIs(t, err, selector.ErrWrongType)

	armed, _, ok := s.Armed()
	require.True(t, ok)
	assert.Equal(t, f.ID(), armed.ID())
}

func TestSelectDisabled(t *testing.T) {
	enabled := false
	scope := resource.NewScope(nil)
	s := selector.New(scope, func() bool { return enabled }, nil)

	// disabled wins over a wrong type
	_, err := s.Select(raw("notes.txt"))
	require.ErrorIs(t, err, selector.ErrInputDisabled)
	require.NotErrorIs(t, err, selector.ErrWrongType)

	_, err = s.Select(raw("clip.wav"))
	require.ErrorIs(t, err, selector.ErrInputDisabled)
	assert.EqualValues(t, 0, scope.Acquired())

	enabled = true
	_, err = s.Select(raw("clip.wav"))
	require.NoError(t, err)
}

func TestSelectNoCandidate(t *testing.T) {
	s := selector.New(resource.NewScope(nil), nil, nil)
	_, err := s.Select()
	require.ErrorIs(t, err, selector.ErrNoCandidate)
}

func TestReplacementReleasesPreviousHandleOnce(t *testing.T) {
	scope := resource.NewScope(nil)
	s := selector.New(scope, nil, nil)

	_, err := s.Select(raw("a.wav"))
	require.NoError(t, err)
	_, h1, _ := s.Armed()

	_, err = s.Select(raw("b.mp3"))
	require.NoError(t, err)
	_, h2, _ := s.Armed()

	assert.True(t, h1.Released())
	assert.False(t, h2.Released())
	assert.NotEqual(t, h1.ID(), h2.ID())
	assert.EqualValues(t, 2, scope.Acquired())
	assert.EqualValues(t, 1, scope.ReleasedCount())
}

func TestSelectThenClear(t *testing.T) {
	scope := resource.NewScope(nil)
	s := selector.New(scope, nil, nil)

	_, err := s.Select(raw("a.m4a"))
	require.NoError(t, err)
	_, h, _ := s.Armed()

	s.Clear()
	s.Clear()

	_, _, ok := s.Armed()
	assert.False(t, ok)
	assert.True(t, h.Released())
	assert.Equal(t, 0, scope.Live())
	assert.Equal(t, scope.Acquired(), scope.ReleasedCount())
}

func TestClearIf(t *testing.T) {
	s := selector.New(resource.NewScope(nil), nil, nil)

	a, err := s.Select(raw("a.wav"))
	require.NoError(t, err)
	b, err := s.Select(raw("b.wav"))
	require.NoError(t, err)

	assert.False(t, s.ClearIf(a))
	_, _, ok := s.Armed()
	assert.True(t, ok)

	assert.True(t, s.ClearIf(b))
	_, _, ok = s.Armed()
	assert.False(t, ok)
}

func TestDetectMIMEFromContent(t *testing.T) {
	s := selector.New(resource.NewScope(nil), nil, nil)

	// ID3v2 header sniffs as MPEG audio regardless of the declared type.
	data := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 32)...)
	f, err := s.Select(clip.Raw{Name: "song.aac", Data: data, MIMEType: "application/octet-stream"})
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", f.MIMEType())

	f, err = s.Select(clip.Raw{Name: "x.aac", Data: []byte("zz"), MIMEType: "audio/x-aac"})
	require.NoError(t, err)
	assert.Equal(t, "audio/x-aac", f.MIMEType())
}

func TestCheckDoesNotArm(t *testing.T) {
	scope := resource.NewScope(nil)
	s := selector.New(scope, nil, nil)

	require.NoError(t, s.Check(raw("clip.m4a")))
	require.ErrorIs(t, s.Check(raw("clip.ogg")), selector.ErrWrongType)
	require.ErrorIs(t, s.Check(), selector.ErrNoCandidate)

	_, _, ok := s.Armed()
	assert.False(t, ok)
	assert.Zero(t, scope.Acquired())
}
