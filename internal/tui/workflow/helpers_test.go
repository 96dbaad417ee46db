package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alkime/drumtone/internal/selector"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/submission"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00.0"},
		{3.4, "0:03.4"},
		{83.4, "1:23.4"},
		{-2, "0:00.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSeconds(tt.in), "formatSeconds(%v)", tt.in)
	}
}

func TestDescribeError(t *testing.T) {
	pending := fmt.Errorf("%w: %w", &selector.Rejection{Reason: selector.InputDisabled}, submission.ErrPending)

	assert.Contains(t, describeError(&selector.Rejection{Reason: selector.WrongType, Name: "a.txt"}), ".wav, .mp3, .m4a, .aac")
	assert.Equal(t, "An analysis is already running.", describeError(pending))
	assert.Equal(t, "The classifier is unavailable right now.",
		describeError(&selector.Rejection{Reason: selector.InputDisabled}))
	assert.Equal(t, "Choose a clip first.", describeError(submission.ErrNoFile))
	assert.Empty(t, describeError(nil))
}

func TestForward(t *testing.T) {
	ch := make(chan session.Snapshot, 2)
	got := make(chan tea.Msg, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Forward(ctx, func(msg tea.Msg) { got <- msg }, ch)
	}()

	ch <- session.Snapshot{}
	select {
	case msg := <-got:
		_, ok := msg.(SnapshotMsg)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("snapshot was not forwarded")
	}

	close(ch)
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Forward did not return after the channel closed")
	}
}
