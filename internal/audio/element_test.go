package audio_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alkime/drumtone/internal/audio"
	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/playback"
	"github.com/alkime/drumtone/internal/resource"
	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = beep.SampleRate(8000)

// fakeOutput lets the test pull frames instead of an audio thread.
type fakeOutput struct {
	mu     sync.Mutex
	src    beep.Streamer
	starts int
	stops  int
}

func (f *fakeOutput) Start(_ beep.SampleRate, src beep.Streamer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
	f.starts++
	return nil
}

func (f *fakeOutput) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = nil
	f.stops++
}

func (f *fakeOutput) pump(frames int) {
	f.mu.Lock()
	src := f.src
	f.mu.Unlock()
	if src != nil {
		src.Stream(make([][2]float64, frames))
	}
}

// wavClip encodes seconds of silence as a wav clip.
func wavClip(t *testing.T, seconds float64) clip.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	format := beep.Format{SampleRate: testRate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(int(seconds*float64(testRate))), format))
	require.NoError(t, f.Close())

	raw, err := clip.ReadFile(path)
	require.NoError(t, err)

	return clip.New(raw.Name, "audio/wav", "", raw.Data)
}

func newPlayer(t *testing.T) (*playback.Controller, *fakeOutput) {
	t.Helper()
	out := &fakeOutput{}
	el := audio.NewElement(out, audio.WithTick(5*time.Millisecond))
	ctrl := playback.New(el, nil)
	el.Bind(ctrl)
	t.Cleanup(el.Close)

	return ctrl, out
}

func TestElementPlaysToEnd(t *testing.T) {
	ctrl, out := newPlayer(t)
	scope := resource.NewScope(nil)

	ctrl.Load(scope.Acquire(wavClip(t, 1)))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Duration > 0
	}, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 1.0, ctrl.Snapshot().Duration, 0.01)

	ctrl.Toggle()
	require.True(t, ctrl.Snapshot().IsPlaying())

	out.pump(4000)
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Position >= 0.49
	}, time.Second, 5*time.Millisecond)

	out.pump(5000)
	require.Eventually(t, func() bool {
		s := ctrl.Snapshot()
		return s.Status == playback.Paused && s.Position == 0
	}, time.Second, 5*time.Millisecond)

	// after the end the source restarts from the top
	ctrl.Toggle()
	out.pump(800)
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Position >= 0.09
	}, time.Second, 5*time.Millisecond)
}

func TestElementPausedOutputsSilenceWithoutAdvancing(t *testing.T) {
	ctrl, out := newPlayer(t)
	scope := resource.NewScope(nil)

	ctrl.Load(scope.Acquire(wavClip(t, 1)))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Duration > 0
	}, time.Second, 5*time.Millisecond)

	out.pump(4000)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, ctrl.Snapshot().Position)
	assert.Equal(t, playback.Ready, ctrl.Snapshot().Status)
}

func TestElementSeek(t *testing.T) {
	ctrl, out := newPlayer(t)
	scope := resource.NewScope(nil)

	ctrl.Load(scope.Acquire(wavClip(t, 1)))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Duration > 0
	}, time.Second, 5*time.Millisecond)

	_, err := ctrl.Seek(0.75)
	require.NoError(t, err)
	ctrl.Toggle()
	out.pump(400)

	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Position >= 0.79
	}, time.Second, 5*time.Millisecond)
}

func TestElementSeekBackDropsEarlierPositions(t *testing.T) {
	ctrl, out := newPlayer(t)
	scope := resource.NewScope(nil)

	ctrl.Load(scope.Acquire(wavClip(t, 1)))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Duration > 0
	}, time.Second, 5*time.Millisecond)

	ctrl.Toggle()
	out.pump(4000)
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Position >= 0.49
	}, time.Second, 5*time.Millisecond)

	_, err := ctrl.Seek(0.1)
	require.NoError(t, err)

	// no frames are pulled, so every later tick reads the seek target
	for range 10 {
		time.Sleep(5 * time.Millisecond)
		assert.InDelta(t, 0.1, ctrl.Snapshot().Position, 0.01)
	}
	assert.True(t, ctrl.Snapshot().IsPlaying())
}

func TestElementUnsupportedCodec(t *testing.T) {
	ctrl, _ := newPlayer(t)
	scope := resource.NewScope(nil)

	ctrl.Load(scope.Acquire(clip.New("clip.m4a", "audio/mp4", "", []byte("not decodable"))))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Status == playback.Errored
	}, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, ctrl.Snapshot().Err, audio.ErrUnsupportedCodec)
	var mediaErr *audio.MediaError
	require.ErrorAs(t, ctrl.Snapshot().Err, &mediaErr)
	assert.Equal(t, "decode", mediaErr.Op)
}

func TestElementReleasedHandle(t *testing.T) {
	ctrl, _ := newPlayer(t)
	scope := resource.NewScope(nil)
	h := scope.Acquire(wavClip(t, 1))
	scope.Release(h)

	ctrl.Load(h)
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Status == playback.Errored
	}, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, ctrl.Snapshot().Err, resource.ErrReleased)
}

func TestElementReloadDropsStaleSource(t *testing.T) {
	ctrl, out := newPlayer(t)
	scope := resource.NewScope(nil)

	ctrl.Load(scope.Acquire(wavClip(t, 1)))
	ctrl.Load(scope.Acquire(wavClip(t, 2)))

	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Duration > 1.5
	}, time.Second, 5*time.Millisecond)

	ctrl.Unload()
	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Nil(t, out.src)
}

func TestDuration(t *testing.T) {
	f := wavClip(t, 0.5)
	h := resource.NewScope(nil).Acquire(f)
	data, err := resource.Bytes(h)
	require.NoError(t, err)

	d, err := audio.Duration(data, ".wav")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 0.01)

	_, err = audio.Duration(data, ".aac")
	require.ErrorIs(t, err, audio.ErrUnsupportedCodec)
}
