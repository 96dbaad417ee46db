package workflow

import (
	"strings"

	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/submission"
	"github.com/alkime/drumtone/internal/tui/components/labeledspinner"
	"github.com/alkime/drumtone/internal/tui/components/phases"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type analyzeKeyMap struct {
	Back key.Binding
}

func defaultAnalyzeKeyMap() analyzeKeyMap {
	return analyzeKeyMap{
		Back: key.NewBinding(
			key.WithKeys("enter", "b"),
			key.WithHelp("enter", "choose another clip"),
		),
	}
}

type analyzePhase struct {
	keys    analyzeKeyMap
	session Session
	home    string
	spinner labeledspinner.Model
	snap    session.Snapshot
}

// NewAnalyze creates the phase shown while the classifier works. home is the
// phase to return to after a failure.
func NewAnalyze(s Session, home string) tea.Model {
	return &analyzePhase{
		keys:    defaultAnalyzeKeyMap(),
		session: s,
		home:    home,
		spinner: labeledspinner.New(
			spinner.Dot,
			"Analyzing tone...",
			labeledspinner.WithDetail("Sending clip to the classifier"),
			labeledspinner.Timed(),
		),
	}
}

func (ap *analyzePhase) Init() tea.Cmd {
	ap.snap = ap.session.Snapshot()
	ap.spinner = ap.spinner.Restart()

	// the request may have settled before this phase was shown
	if cmd := ap.settle(); cmd != nil {
		return cmd
	}

	return ap.spinner.Init()
}

func (ap *analyzePhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case SnapshotMsg:
		ap.snap = msg.Snapshot
		if cmd := ap.settle(); cmd != nil {
			return ap, cmd
		}
		if ap.failed() {
			return ap, ap.spinner.Stop()
		}

		return ap, nil

	case tea.KeyMsg:
		if ap.failed() && key.Matches(msg, ap.keys.Back) {
			ap.session.Reset()
			return ap, phases.GotoPhaseCmd(ap.home)
		}

		return ap, nil
	}

	var cmd tea.Cmd
	ap.spinner, cmd = ap.spinner.Update(teaMsg)

	return ap, cmd
}

func (ap *analyzePhase) View() string {
	if info, ok := ap.snap.Submission.Error(); ok {
		return ap.renderFailure(info)
	}

	sp := ap.spinner
	if f := ap.snap.Submission.File(); !f.IsZero() {
		sp = sp.SetDetail("Sending " + describeFile(f) + " to the classifier")
	}

	return sp.View(renderGlobalKeyHelp())
}

// settle advances once the submission succeeded.
func (ap *analyzePhase) settle() tea.Cmd {
	if ap.snap.Submission.Kind() == submission.Succeeded {
		return phases.NextPhaseCmd
	}

	return nil
}

func (ap *analyzePhase) failed() bool {
	return ap.snap.Submission.Kind() == submission.Failed
}

func (ap *analyzePhase) renderFailure(info submission.ErrorInfo) string {
	var body strings.Builder
	body.WriteString(style.Error.Render("✗ Analysis failed"))
	body.WriteString("\n\n")
	body.WriteString(info.Message)
	if f := ap.snap.Submission.File(); !f.IsZero() {
		body.WriteString("\n")
		body.WriteString(style.Muted.Render(f.Name()))
	}

	var sb strings.Builder
	sb.WriteString(style.Panel.Render(body.String()))
	sb.WriteString("\n\n")
	sb.WriteString(renderKeyHelp(ap.keys.Back, "\n"))
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}
