package workflow

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/resource"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/submission"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// outputChecker provides helpers for testing teatest output.
type outputChecker struct {
	intervl, timeout time.Duration
}

func defaultChecker() outputChecker {
	return outputChecker{
		intervl: 100 * time.Millisecond,
		timeout: 3 * time.Second,
	}
}

func (o outputChecker) check(t *testing.T, tm *teatest.TestModel, checkFunc func(buf []byte) bool) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), checkFunc,
		teatest.WithCheckInterval(o.intervl),
		teatest.WithDuration(o.timeout))
}

func (o outputChecker) checkString(t *testing.T, tm *teatest.TestModel, substr string) {
	t.Helper()
	o.checkStrings(t, tm, substr)
}

// checkStrings waits until every substr has been drawn. Each wait consumes
// the output read so far, so strings of one frame are checked together.
func (o outputChecker) checkStrings(t *testing.T, tm *teatest.TestModel, substrs ...string) {
	t.Helper()
	o.check(t, tm, func(buf []byte) bool {
		for _, s := range substrs {
			if !bytes.Contains(buf, []byte(s)) {
				return false
			}
		}
		return true
	})
}

// mockChecker implements health.Checker for testing.
type mockChecker struct {
	health prediction.Health
	err    error
}

func (m mockChecker) Health(context.Context) (prediction.Health, error) {
	return m.health, m.err
}

var healthy = mockChecker{health: prediction.Health{Status: "healthy", ModelLoaded: true}}

type reply struct {
	result prediction.Result
	err    error
}

// mockPredictor answers each Predict with the next reply pushed on gate.
type mockPredictor struct {
	gate chan reply
}

func (m *mockPredictor) Predict(ctx context.Context, _ clip.File) (prediction.Result, error) {
	select {
	case r := <-m.gate:
		return r.result, r.err
	case <-ctx.Done():
		return prediction.Result{}, ctx.Err()
	}
}

// mockMedia implements playback.Media and does nothing.
type mockMedia struct{}

func (mockMedia) Load(*resource.Handle) {}
func (mockMedia) Unload()               {}
func (mockMedia) Play()                 {}
func (mockMedia) Pause()                {}
func (mockMedia) Seek(float64)          {}

// mockKnob implements uictl.Knob for testing.
type mockKnob struct {
	mu    sync.Mutex
	state bool
}

func (m *mockKnob) Read() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
func (m *mockKnob) On()     { m.set(true) }
func (m *mockKnob) Off()    { m.set(false) }
func (m *mockKnob) Toggle() { m.set(!m.Read()) }

func (m *mockKnob) set(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = v
}

// mockCappedDial implements uictl.CappedDial for testing.
type mockCappedDial[N int64 | float64] struct {
	current, max N
}

func (m *mockCappedDial[N]) Read() N     { return m.current }
func (m *mockCappedDial[N]) Cap() (N, N) { return m.current, m.max }

// mockLevels implements uictl.Levels[int16] for testing.
type mockLevels struct {
	samples []int16
}

func (m *mockLevels) Read() []int16 { return m.samples }

func doResult() prediction.Result {
	return prediction.MustParse(prediction.WirePrediction{
		PredictedNote: "Do",
		Confidence:    95.2,
		AllConfidences: map[string]float64{
			"Do": 95.2, "Re": 2.1, "Mi": 1.3, "Fa": 0.6, "So": 0.4, "La": 0.3, "Ti": 0.1,
		},
		CulturalInfo:  prediction.CulturalInfo{Pitch: "Lowest tone", Frequency: "100-150 Hz"},
		AudioDuration: 3.4,
	})
}

// testSession runs a session against mocks and forwards its snapshots to
// the test model once one is attached.
type testSession struct {
	*session.Session
	pred *mockPredictor

	mu   sync.Mutex
	tm   *teatest.TestModel
	snap chan session.Snapshot
}

func startSession(t *testing.T, checker mockChecker) *testSession {
	t.Helper()

	pred := &mockPredictor{gate: make(chan reply, 1)}
	s := session.New(session.Config{Predictor: pred, Checker: checker, Media: mockMedia{}})
	ts := &testSession{Session: s, pred: pred, snap: make(chan session.Snapshot, 64)}
	require.NoError(t, s.Subscribe(ts.snap))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	go Forward(ctx, ts.send, ts.snap)

	t.Cleanup(func() {
		s.Close()
		cancel()
		s.Wait()
	})

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("availability check never resolved")
	}

	return ts
}

// attach routes snapshots into tm.
func (ts *testSession) attach(tm *teatest.TestModel) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tm = tm
}

func (ts *testSession) send(msg tea.Msg) {
	ts.mu.Lock()
	tm := ts.tm
	ts.mu.Unlock()

	if tm != nil {
		tm.Send(msg)
	}
}

func (ts *testSession) waitKind(t *testing.T, kind submission.Kind) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ts.Snapshot().Submission.Kind() == kind
	}, 2*time.Second, 10*time.Millisecond)
}

// armAndSubmit leaves the session pending on a clip named name.
func (ts *testSession) armAndSubmit(t *testing.T, name string) {
	t.Helper()
	_, err := ts.Select(clip.Raw{Name: name, Data: []byte("RIFF....WAVE")})
	require.NoError(t, err)
	require.NoError(t, ts.Submit())
}
