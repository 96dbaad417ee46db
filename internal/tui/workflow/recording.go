// Package workflow provides the phases of the classification TUI.
package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/tui/components/phases"
	"github.com/alkime/drumtone/internal/tui/components/waveform"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/alkime/drumtone/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
)

// RecordControls provides read/write access to the microphone recording.
type RecordControls struct {
	Progress uictl.CappedDial[int64]
	Capture  uictl.Knob
	Levels   uictl.Levels[int16]
	// Full is closed once the recording reached its maximum length.
	Full <-chan struct{}
	// Finish stops capture and returns the encoded clip. It is called at most once.
	Finish func() (clip.Raw, error)
	// MaxDuration is only displayed.
	MaxDuration time.Duration
}

// recordingKeyMap defines the key bindings for the recording phase.
type recordingKeyMap struct {
	Toggle key.Binding
	Finish key.Binding
}

func defaultRecordingKeyMap() recordingKeyMap {
	return recordingKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "start/pause recording"),
		),
		Finish: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "stop and analyze"),
		),
	}
}

// recordingFullMsg is sent once the recording reached its cap.
type recordingFullMsg struct{}

// recordedMsg carries the encoded clip after Finish.
type recordedMsg struct {
	raw clip.Raw
	err error
}

// recordingPhase represents the recording phase UI state.
type recordingPhase struct {
	keys           recordingKeyMap
	controls       RecordControls
	session        Session
	spinner        spinner.Model
	stopwatch      stopwatch.Model
	progress       progress.Model
	waveform       waveform.Model
	outputPath     string
	existingOutput existingOutputState

	finishing bool
	finished  bool
	stop      chan struct{}
	notice    string
}

// NewRecording creates the phase that records a clip from the microphone,
// saves it to outputPath and submits it.
func NewRecording(s Session, controls RecordControls, outputPath string) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Points

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &recordingPhase{
		keys:           defaultRecordingKeyMap(),
		controls:       controls,
		session:        s,
		spinner:        sp,
		stopwatch:      stopwatch.New(),
		progress:       p,
		waveform:       waveform.New(controls.Levels, 40, 3),
		outputPath:     outputPath,
		existingOutput: newExistingOutputState(outputPath),
		stop:           make(chan struct{}),
	}
}

// Init returns the initial command for the recording phase.
func (r *recordingPhase) Init() tea.Cmd {
	r.existingOutput.refresh()
	if r.existingOutput.found {
		return nil
	}

	return r.startCmds()
}

// Update handles messages for the recording phase.
func (r *recordingPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch typedMsg := teaMsg.(type) {
	case tea.KeyMsg:
		// Handle existing output keybindings first
		if r.existingOutput.found {
			switch {
			case key.Matches(typedMsg, r.existingOutput.keys.UseExisting):
				return r, readClipCmd(r.outputPath)
			case key.Matches(typedMsg, r.existingOutput.keys.Redo) && !r.finished:
				r.existingOutput.found = false

				return r, r.startCmds()
			}

			return r, nil
		}

		if r.finishing || r.finished {
			return r, nil
		}

		switch {
		case key.Matches(typedMsg, r.keys.Toggle):
			r.controls.Capture.Toggle()
			if r.IsRecording() {
				cmds = append(cmds, r.stopwatch.Start())
			} else {
				cmds = append(cmds, r.stopwatch.Stop())
			}

			return r, tea.Batch(cmds...)

		case key.Matches(typedMsg, r.keys.Finish):
			return r, r.finish()
		}

	case recordingFullMsg:
		return r, r.finish()

	case recordedMsg:
		r.finishing = false
		r.finished = true
		if typedMsg.err != nil {
			r.notice = "Recording failed: " + typedMsg.err.Error()
			return r, nil
		}
		r.save(typedMsg.raw)

		return r, r.submit(typedMsg.raw)

	case clipReadMsg:
		if typedMsg.err != nil {
			r.notice = typedMsg.err.Error()
			return r, nil
		}

		return r, r.submit(typedMsg.raw)

	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(typedMsg)
		cmds = append(cmds, cmd)

	case waveform.TickMsg:
		if r.finished {
			return r, nil
		}
		var cmd tea.Cmd
		r.waveform, cmd = r.waveform.Update(typedMsg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		r.waveform = r.waveform.SetWidth(min(typedMsg.Width-4, 80))

	case progress.FrameMsg:
		progressModel, cmd := r.progress.Update(typedMsg)
		r.progress = progressModel.(progress.Model) //nolint:forcetypeassert // bubbles library contract
		cmds = append(cmds, cmd)
	}

	// Always update stopwatch (but only if not showing existing output)
	if !r.existingOutput.found {
		var stopwatchCmd tea.Cmd
		r.stopwatch, stopwatchCmd = r.stopwatch.Update(teaMsg)
		if stopwatchCmd != nil {
			cmds = append(cmds, stopwatchCmd)
		}
	}

	return r, tea.Batch(cmds...)
}

// View renders the recording phase UI.
func (r *recordingPhase) View() string {
	// Show existing output view if recording already exists
	if r.existingOutput.found {
		view := renderExistingOutputView(r.existingOutput, !r.finished)
		if r.notice != "" {
			view = style.Error.Render(r.notice) + "\n\n" + view
		}

		return view
	}

	var sb strings.Builder

	switch {
	case r.finishing:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Title.Render("Encoding clip"))
	case r.IsRecording():
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Title.Render("Recording"))
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(r.stopwatch.View()))
	default:
		sb.WriteString(style.Warning.Render("Paused"))
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(r.stopwatch.View()))
	}

	sb.WriteString("\n\n")
	sb.WriteString(r.waveform.View())
	sb.WriteString("\n")
	if r.IsRecording() && r.waveform.Clipping() {
		sb.WriteString(style.Error.Render("Input is clipping, strike softer or move the mic back"))
	}
	sb.WriteString("\n\n")

	// Clip length progress
	percent := uictl.Fraction(r.controls.Progress)

	sb.WriteString(r.progress.ViewAs(percent))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render(formatLength(percent, r.controls.MaxDuration)))
	sb.WriteString("\n\n")

	if r.notice != "" {
		sb.WriteString(style.Error.Render(r.notice))
		sb.WriteString("\n\n")
	}

	// Help text
	sb.WriteString(renderKeyHelp(r.keys.Toggle, " "))
	sb.WriteString(renderKeyHelp(r.keys.Finish, "\n"))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

// IsRecording returns whether recording is currently active.
func (r *recordingPhase) IsRecording() bool {
	return r.controls.Capture.Read()
}

func (r *recordingPhase) startCmds() tea.Cmd {
	return tea.Batch(r.spinner.Tick, r.waveform.Init(), r.waitFull())
}

// waitFull turns the recorder's cap into a message.
func (r *recordingPhase) waitFull() tea.Cmd {
	full, stop := r.controls.Full, r.stop
	if full == nil {
		return nil
	}

	return func() tea.Msg {
		select {
		case <-full:
			return recordingFullMsg{}
		case <-stop:
			return nil
		}
	}
}

func (r *recordingPhase) finish() tea.Cmd {
	if r.finishing || r.finished {
		return nil
	}
	r.finishing = true
	close(r.stop)
	finish := r.controls.Finish

	return tea.Batch(r.stopwatch.Stop(), func() tea.Msg {
		raw, err := finish()
		return recordedMsg{raw: raw, err: err}
	})
}

func (r *recordingPhase) save(raw clip.Raw) {
	if r.outputPath == "" {
		return
	}
	//nolint:gosec // recordings are meant to be opened by other tools
	if err := os.WriteFile(r.outputPath, raw.Data, 0o644); err != nil {
		slog.Error("Failed to save recording", "path", r.outputPath, "error", err)
		return
	}
	slog.Info("Recording saved", "path", r.outputPath, "bytes", len(raw.Data))
}

func (r *recordingPhase) submit(raw clip.Raw) tea.Cmd {
	if _, err := r.session.Select(raw); err != nil {
		r.notice = describeError(err)
		return nil
	}
	if err := r.session.Submit(); err != nil {
		r.notice = describeError(err)
		return nil
	}
	r.notice = ""

	return phases.NextPhaseCmd
}

// formatLength renders the captured share of the maximum clip length.
func formatLength(percent float64, maxDuration time.Duration) string {
	if maxDuration <= 0 {
		return fmt.Sprintf("%d%%", int(percent*100))
	}
	captured := time.Duration(percent * float64(maxDuration)).Round(100 * time.Millisecond)

	return fmt.Sprintf("%s / %s (%d%%)", captured, maxDuration, int(percent*100))
}
