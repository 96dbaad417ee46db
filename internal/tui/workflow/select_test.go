package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alkime/drumtone/internal/submission"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clipDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		//nolint:gosec // Test file
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, 2048), 0o644))
	}

	return dir
}

func TestSelectPhase_PickAndSubmit(t *testing.T) {
	ts := startSession(t, healthy)
	dir := clipDir(t, "do-take1.wav")

	tm := teatest.NewTestModel(t, NewSelect(ts, dir), teatest.WithInitialTermSize(100, 30))
	ts.attach(tm)
	checker := defaultChecker()

	checker.checkStrings(t, tm, "No clip selected", "do-take1.wav")

	// enter selects the file under the cursor
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	checker.checkStrings(t, tm, "Selected:", "2.0 kB")
	assert.Equal(t, "do-take1.wav", ts.Snapshot().Armed.Name())

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	ts.waitKind(t, submission.Pending)
	assert.Equal(t, "do-take1.wav", ts.Snapshot().Submission.File().Name())
}

func TestSelectPhase_WrongType(t *testing.T) {
	ts := startSession(t, healthy)
	dir := clipDir(t, "notes.txt")

	tm := teatest.NewTestModel(t, NewSelect(ts, dir), teatest.WithInitialTermSize(100, 30))
	checker := defaultChecker()

	checker.checkString(t, tm, "notes.txt")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	checker.checkString(t, tm, "Please choose an audio file")
	assert.True(t, ts.Snapshot().Armed.IsZero())
	assert.Zero(t, ts.Scope().Live(), "rejected files never acquire a handle")
}

func TestSelectPhase_Clear(t *testing.T) {
	ts := startSession(t, healthy)
	dir := clipDir(t, "mi.mp3")

	tm := teatest.NewTestModel(t, NewSelect(ts, dir), teatest.WithInitialTermSize(100, 30))
	checker := defaultChecker()

	checker.checkString(t, tm, "mi.mp3")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	checker.checkString(t, tm, "Selected:")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Eventually(t, func() bool {
		return ts.Snapshot().Armed.IsZero()
	}, checker.timeout, checker.intervl)
	assert.Equal(t, submission.Idle, ts.Snapshot().Submission.Kind())
	assert.Zero(t, ts.Scope().Live())
}

func TestSelectPhase_BackendOffline(t *testing.T) {
	ts := startSession(t, mockChecker{err: errors.New("connection refused")})
	dir := clipDir(t, "la.wav")

	tm := teatest.NewTestModel(t, NewSelect(ts, dir), teatest.WithInitialTermSize(100, 30))
	ts.attach(tm)
	checker := defaultChecker()

	checker.checkString(t, tm, "Uploads are disabled")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	checker.checkString(t, tm, "The classifier is unavailable right now.")
	assert.Equal(t, submission.Idle, ts.Snapshot().Submission.Kind())
}
