package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alkime/drumtone/internal/playback"
	"github.com/alkime/drumtone/internal/present"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/tui/components/phases"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/alkime/drumtone/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	seekStep     = 1.0
	barWidth     = 24
	categoryCol  = 4
	playbackBar  = 36
	notePadWidth = 6
)

type resultKeyMap struct {
	PlayPause key.Binding
	Back      key.Binding
	Forward   key.Binding
	Again     key.Binding
}

func defaultResultKeyMap() resultKeyMap {
	return resultKeyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		Back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "-1s"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "+1s"),
		),
		Again: key.NewBinding(
			key.WithKeys("n", "enter"),
			key.WithHelp("n", "new clip"),
		),
	}
}

type resultPhase struct {
	keys     resultKeyMap
	session  Session
	controls PlaybackControls
	home     string
	progress progress.Model

	snap    session.Snapshot
	display present.DisplayModel
	ok      bool
}

// NewResult creates the phase showing the prediction and the playback bar.
// home is the phase "new clip" returns to.
func NewResult(s Session, controls PlaybackControls, home string) tea.Model {
	return &resultPhase{
		keys:     defaultResultKeyMap(),
		session:  s,
		controls: controls,
		home:     home,
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(playbackBar),
			progress.WithoutPercentage(),
		),
	}
}

func (rp *resultPhase) Init() tea.Cmd {
	rp.refresh(rp.session.Snapshot())
	return nil
}

func (rp *resultPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case SnapshotMsg:
		rp.refresh(msg.Snapshot)
		return rp, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, rp.keys.Again):
			rp.session.Reset()
			return rp, phases.GotoPhaseCmd(rp.home)

		case key.Matches(msg, rp.keys.PlayPause):
			if rp.snap.Playback.ControlsEnabled() {
				rp.controls.PlayPause.Toggle()
			}

		case key.Matches(msg, rp.keys.Back):
			rp.seek(-seekStep)

		case key.Matches(msg, rp.keys.Forward):
			rp.seek(seekStep)
		}

		return rp, nil
	}

	return rp, nil
}

func (rp *resultPhase) View() string {
	if !rp.ok {
		return style.Muted.Render("No result yet.") + "\n\n" +
			renderKeyHelp(rp.keys.Again, "\n") + renderGlobalKeyHelp()
	}

	var sb strings.Builder
	sb.WriteString(style.Card.Render(rp.renderCard()))
	sb.WriteString("\n\n")
	sb.WriteString(rp.renderBars())
	sb.WriteString("\n")
	sb.WriteString(rp.renderPlayback())
	sb.WriteString("\n\n")

	if rp.snap.Playback.ControlsEnabled() {
		sb.WriteString(renderKeyHelp(rp.keys.PlayPause, " "))
		sb.WriteString(renderKeyHelp(rp.keys.Back, " "))
		sb.WriteString(renderKeyHelp(rp.keys.Forward, " "))
	}
	sb.WriteString(renderKeyHelp(rp.keys.Again, "\n"))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func (rp *resultPhase) refresh(snap session.Snapshot) {
	rp.snap = snap
	r, ok := snap.Submission.Result()
	rp.ok = ok
	if ok {
		rp.display = present.Present(r)
	}
}

func (rp *resultPhase) seek(delta float64) {
	if !rp.snap.Playback.ControlsEnabled() || rp.controls.SeekBy == nil {
		return
	}
	if _, err := rp.controls.SeekBy(delta); err != nil {
		slog.Debug("seek ignored", "delta", delta, "error", err)
	}
}

func (rp *resultPhase) renderCard() string {
	d := rp.display

	var sb strings.Builder
	sb.WriteString(style.Note.Render(string(d.Label)))
	sb.WriteString("  ")
	sb.WriteString(bandStyle(d.Band).Render(fmt.Sprintf("%.2f%% confidence", d.Confidence)))
	sb.WriteString(style.Muted.Render(" (" + string(d.Band) + ")"))
	sb.WriteString("\n\n")

	rows := []struct{ label, value string }{
		{"Pitch", d.Cultural.Pitch},
		{"Frequency", d.Cultural.Frequency},
		{"Usage", d.Cultural.Usage},
		{"Meaning", d.Cultural.Cultural},
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		sb.WriteString(style.Label.Render(fmt.Sprintf("%-10s", row.label+":")))
		sb.WriteString(row.value)
		sb.WriteString("\n")
	}
	sb.WriteString(style.Muted.Render(fmt.Sprintf("Clip length %.2fs", d.Duration)))

	return sb.String()
}

// renderBars draws one confidence bar per category in scale order.
func (rp *resultPhase) renderBars() string {
	var sb strings.Builder
	sb.WriteString(style.Title.Render("Confidence"))
	sb.WriteString("\n")

	for _, e := range rp.display.Entries {
		filled := int(e.Confidence / 100 * barWidth)
		filled = min(max(filled, 0), barWidth)

		name := lipgloss.NewStyle().Width(categoryCol).Render(string(e.Category))
		if e.Predicted {
			name = style.Bullet.Render(lipgloss.NewStyle().Width(categoryCol).Render(string(e.Category)))
		}

		sb.WriteString(name)
		sb.WriteString(" ")
		sb.WriteString(bandStyle(e.Band).Render(strings.Repeat("█", filled)))
		sb.WriteString(style.Muted.Render(strings.Repeat("░", barWidth-filled)))
		sb.WriteString(" ")
		sb.WriteString(lipgloss.NewStyle().Width(notePadWidth).Align(lipgloss.Right).
			Render(fmt.Sprintf("%.2f%%", e.Confidence)))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (rp *resultPhase) renderPlayback() string {
	pb := rp.snap.Playback

	var sb strings.Builder
	switch pb.Status {
	case playback.NoSource:
		return style.Muted.Render("Playback unavailable")
	case playback.Errored:
		return style.Warning.Render("This clip cannot be played here")
	case playback.Playing:
		sb.WriteString(style.Success.Render("▶ "))
	default:
		sb.WriteString(style.Subtitle.Render("⏸ "))
	}

	pos, dur := pb.Position, pb.Duration
	percent := 0.0
	if rp.controls.Progress != nil {
		pos, dur = rp.controls.Progress.Cap()
		percent = uictl.Fraction(rp.controls.Progress)
	} else if dur > 0 {
		percent = pos / dur
	}
	sb.WriteString(rp.progress.ViewAs(percent))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(formatSeconds(pos) + " / " + formatSeconds(dur)))

	return sb.String()
}

func bandStyle(b present.Band) lipgloss.Style {
	switch b {
	case present.High:
		return style.BandHigh
	case present.Medium:
		return style.BandMedium
	default:
		return style.BandLow
	}
}
