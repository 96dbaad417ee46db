package workflow

import (
	"strings"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/tui/components/phases"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// pickerChrome is the number of lines the select screen draws around the picker.
const pickerChrome = 12

type selectKeyMap struct {
	Submit key.Binding
	Clear  key.Binding
}

func defaultSelectKeyMap() selectKeyMap {
	return selectKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "analyze clip"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear"),
		),
	}
}

// clipReadMsg is the result of reading a picked file from disk.
type clipReadMsg struct {
	raw clip.Raw
	err error
}

type selectPhase struct {
	keys    selectKeyMap
	session Session
	picker  filepicker.Model
	snap    session.Snapshot
	notice  string
}

// NewSelect creates the phase that picks a clip from disk and submits it.
func NewSelect(s Session, startDir string) tea.Model {
	fp := filepicker.New()
	fp.AllowedTypes = clip.Extensions
	fp.ShowPermissions = false
	fp.ShowSize = true
	if startDir != "" {
		fp.CurrentDirectory = startDir
	}
	fp.AutoHeight = false
	fp.SetHeight(10)

	return &selectPhase{
		keys:    defaultSelectKeyMap(),
		session: s,
		picker:  fp,
	}
}

func (sp *selectPhase) Init() tea.Cmd {
	sp.snap = sp.session.Snapshot()
	sp.notice = ""

	return sp.picker.Init()
}

func (sp *selectPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case SnapshotMsg:
		sp.snap = msg.Snapshot
		return sp, nil

	case tea.WindowSizeMsg:
		sp.picker.SetHeight(max(3, msg.Height-pickerChrome))
		return sp, nil

	case clipReadMsg:
		if msg.err != nil {
			sp.notice = msg.err.Error()
			return sp, nil
		}
		if _, err := sp.session.Select(msg.raw); err != nil {
			sp.notice = describeError(err)
			return sp, nil
		}
		sp.notice = ""
		sp.snap = sp.session.Snapshot()

		return sp, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, sp.keys.Submit):
			if err := sp.session.Submit(); err != nil {
				sp.notice = describeError(err)
				return sp, nil
			}

			return sp, phases.NextPhaseCmd

		case key.Matches(msg, sp.keys.Clear):
			sp.session.Clear()
			sp.notice = ""
			sp.snap = sp.session.Snapshot()

			return sp, nil
		}
	}

	var cmd tea.Cmd
	sp.picker, cmd = sp.picker.Update(teaMsg)

	// disabled files still go to the selector, which explains the refusal
	if ok, path := sp.picker.DidSelectFile(teaMsg); ok {
		return sp, tea.Batch(cmd, readClipCmd(path))
	}
	if ok, path := sp.picker.DidSelectDisabledFile(teaMsg); ok {
		return sp, tea.Batch(cmd, readClipCmd(path))
	}

	return sp, cmd
}

func (sp *selectPhase) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Choose a talking drum clip"))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render(sp.picker.CurrentDirectory))
	sb.WriteString("\n\n")

	if !sp.snap.InputEnabled() {
		sb.WriteString(style.Warning.Render("Uploads are disabled until the classifier is available."))
		sb.WriteString("\n\n")
	}

	sb.WriteString(sp.picker.View())
	sb.WriteString("\n")

	if sp.snap.Armed.IsZero() {
		sb.WriteString(style.Muted.Render("No clip selected"))
	} else {
		sb.WriteString(style.Label.Render("Selected: "))
		sb.WriteString(describeFile(sp.snap.Armed))
	}
	sb.WriteString("\n")

	if sp.notice != "" {
		sb.WriteString(style.Error.Render(sp.notice))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if sp.snap.CanSubmit() {
		sb.WriteString(renderKeyHelp(sp.keys.Submit, " "))
	}
	if !sp.snap.Armed.IsZero() {
		sb.WriteString(renderKeyHelp(sp.keys.Clear, " "))
	}
	sb.WriteString(renderKeyHelp(sp.picker.KeyMap.Select, "\n"))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func readClipCmd(path string) tea.Cmd {
	return func() tea.Msg {
		raw, err := clip.ReadFile(path)
		return clipReadMsg{raw: raw, err: err}
	}
}
