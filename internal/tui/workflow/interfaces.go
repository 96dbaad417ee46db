package workflow

import (
	"context"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Phase names, also used as GotoPhaseMsg targets.
const (
	PhaseSelect  = "Select"
	PhaseRecord  = "Record"
	PhaseAnalyze = "Analyze"
	PhaseResult  = "Result"
)

// Session is the classification workflow the phases drive.
type Session interface {
	Snapshot() session.Snapshot
	Select(candidates ...clip.Raw) (clip.File, error)
	Clear()
	Reset()
	Submit() error
}

// InfoSource serves the informational endpoints of the backend.
type InfoSource interface {
	ModelInfo(ctx context.Context) (prediction.ModelInfo, error)
	Notes(ctx context.Context) (prediction.NotesCatalog, error)
}

// PlaybackControls drive the player on the result screen.
type PlaybackControls struct {
	PlayPause uictl.Knob
	Progress  uictl.CappedDial[float64]
	// SeekBy moves the position by delta seconds and returns where it landed.
	SeekBy func(delta float64) (float64, error)
}

// SnapshotMsg carries a session snapshot into the program.
type SnapshotMsg struct {
	session.Snapshot
}

// Forward sends every snapshot from ch until ctx is done or ch is closed.
// send is usually (*tea.Program).Send.
func Forward(ctx context.Context, send func(tea.Msg), ch <-chan session.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			send(SnapshotMsg{Snapshot: snap})
		}
	}
}
