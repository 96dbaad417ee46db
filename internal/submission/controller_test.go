package submission_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alkime/drumtone/internal/backend"
	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPredictor blocks each call until a response is pushed on gate.
type mockPredictor struct {
	gate  chan response
	calls atomic.Int32
}

type response struct {
	result prediction.Result
	err    error
}

func newMockPredictor() *mockPredictor {
	return &mockPredictor{gate: make(chan response, 4)}
}

func (m *mockPredictor) Predict(_ context.Context, _ clip.File) (prediction.Result, error) {
	m.calls.Add(1)
	r := <-m.gate
	return r.result, r.err
}

func doResult() prediction.Result {
	return prediction.MustParse(prediction.WirePrediction{
		PredictedNote: "Do",
		Confidence:    95.2,
		AllConfidences: map[string]float64{
			"Do": 95.2, "Re": 2.1, "Mi": 1.3, "Fa": 0.6, "So": 0.4, "La": 0.3, "Ti": 0.1,
		},
		AudioDuration: 3.4,
	})
}

func testFile() clip.File {
	return clip.New("clip.wav", "audio/wav", "", make([]byte, 2500*1024))
}

func TestSubmitSucceeds(t *testing.T) {
	pred := newMockPredictor()
	c := submission.New(pred)

	require.NoError(t, c.Submit(testFile()))

	// Pending is set synchronously and carries no result.
	s := c.State()
	assert.Equal(t, submission.Pending, s.Kind())
	_, ok := s.Result()
	assert.False(t, ok)

	pred.gate <- response{result: doResult()}
	c.Wait()

	s = c.State()
	require.Equal(t, submission.Succeeded, s.Kind())
	r, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, prediction.Do, r.Label())
}

func TestSubmitWhilePendingIsRefused(t *testing.T) {
	pred := newMockPredictor()
	c := submission.New(pred)

	require.NoError(t, c.Submit(testFile()))
	before := c.State()

	err := c.Submit(testFile())
	require.ErrorIs(t, err, submission.ErrPending)
	assert.Equal(t, before, c.State())

	pred.gate <- response{result: doResult()}
	c.Wait()
	assert.EqualValues(t, 1, pred.calls.Load())
}

func TestSubmitUnavailable(t *testing.T) {
	pred := newMockPredictor()
	c := submission.New(pred, submission.WithAvailability(func() bool { return false }))

	err := c.Submit(testFile())
	require.ErrorIs(t, err, submission.ErrUnavailable)
	assert.Equal(t, submission.Idle, c.State().Kind())
	assert.EqualValues(t, 0, pred.calls.Load())
}

func TestSubmitZeroFile(t *testing.T) {
	c := submission.New(newMockPredictor())
	require.ErrorIs(t, c.Submit(clip.File{}), submission.ErrNoFile)
}

func TestFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server detail",
			err:  &backend.Error{Op: "predict", StatusCode: 400, Detail: "Unsupported sample rate"},
			want: "Unsupported sample rate",
		},
		{
			name: "non-2xx without detail",
			err:  &backend.Error{Op: "predict", StatusCode: 500},
			want: submission.GenericFailure,
		},
		{
			name: "transport",
			err:  &backend.Error{Op: "predict", Err: errors.New("connection reset")},
			want: submission.GenericFailure,
		},
		{
			name: "malformed payload",
			err:  prediction.ErrMalformed,
			want: submission.GenericFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := newMockPredictor()
			c := submission.New(pred)

			require.NoError(t, c.Submit(testFile()))
			pred.gate <- response{err: tt.err}
			c.Wait()

			s := c.State()
			require.Equal(t, submission.Failed, s.Kind())
			info, ok := s.Error()
			require.True(t, ok)
			assert.Equal(t, tt.want, info.Message)
			require.ErrorIs(t, info.Err, tt.err)

			_, ok = s.Result()
			assert.False(t, ok)
		})
	}
}

func TestResetDiscardsLateCompletion(t *testing.T) {
	pred := newMockPredictor()
	var settled atomic.Int32
	c := submission.New(pred, submission.WithSettleHook(func(submission.State) { settled.Add(1) }))

	require.NoError(t, c.Submit(testFile()))
	c.Reset()
	assert.Equal(t, submission.Idle, c.State().Kind())

	pred.gate <- response{result: doResult()}
	c.Wait()

	assert.Equal(t, submission.Idle, c.State().Kind())
	assert.EqualValues(t, 0, settled.Load())

	// resubmitting after reset is allowed
	require.NoError(t, c.Submit(testFile()))
	pred.gate <- response{result: doResult()}
	c.Wait()
	assert.Equal(t, submission.Succeeded, c.State().Kind())
	assert.EqualValues(t, 1, settled.Load())
}

func TestResetFromFailed(t *testing.T) {
	pred := newMockPredictor()
	c := submission.New(pred)

	require.NoError(t, c.Submit(testFile()))
	pred.gate <- response{err: errors.New("boom")}
	c.Wait()
	require.Equal(t, submission.Failed, c.State().Kind())

	c.Reset()
	c.Reset()
	s := c.State()
	assert.Equal(t, submission.Idle, s.Kind())
	_, ok := s.Error()
	assert.False(t, ok)
}

func TestSubscribersNeverSeeTornState(t *testing.T) {
	pred := newMockPredictor()
	c := submission.New(pred)

	updates := make(chan submission.State, 16)
	require.NoError(t, c.Subscribe(updates))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	require.NoError(t, c.Submit(testFile()))
	pred.gate <- response{result: doResult()}
	c.Wait()

	var mu sync.Mutex
	var kinds []submission.Kind
	require.Eventually(t, func() bool {
		select {
		case s := <-updates:
			_, hasResult := s.Result()
			assert.Equal(t, s.Kind() == submission.Succeeded, hasResult)
			mu.Lock()
			kinds = append(kinds, s.Kind())
			mu.Unlock()
		default:
		}
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 2
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []submission.Kind{submission.Pending, submission.Succeeded}, kinds)
}
