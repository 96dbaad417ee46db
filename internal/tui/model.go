// Package tui is the terminal front end of the tone classifier.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/session"
	"github.com/alkime/drumtone/internal/tui/components/phases"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/alkime/drumtone/internal/tui/workflow"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Config wires the root model.
type Config struct {
	Session  workflow.Session
	Info     workflow.InfoSource
	Playback workflow.PlaybackControls

	// Record replaces file selection with a microphone recording saved to RecordPath.
	Record     *workflow.RecordControls
	RecordPath string
	// StartDir is where the file picker opens.
	StartDir string

	// Recheck runs the availability check again. Optional.
	Recheck func(ctx context.Context) prediction.Availability
	// Timeout bounds info requests and rechecks.
	Timeout time.Duration
	Cancel  context.CancelFunc
	Logger  *slog.Logger
}

// model is the root: a header with the backend badge, the phases, and the
// info tab. It also recovers panics so the terminal never goes blank.
type model struct {
	config   Config
	keys     KeyMap
	logger   *slog.Logger
	phases   phases.Model
	info     *workflow.Info
	showInfo bool
	snap     session.Snapshot

	windowWidth  int
	windowHeight int

	crashed bool
}

// New creates the root model.
func New(config Config) tea.Model {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	home := phases.NewPhase(workflow.PhaseSelect, workflow.NewSelect(config.Session, config.StartDir))
	homeName := workflow.PhaseSelect
	if config.Record != nil {
		homeName = workflow.PhaseRecord
		home = phases.NewPhase(homeName, workflow.NewRecording(config.Session, *config.Record, config.RecordPath))
	}

	return &model{
		config: config,
		keys:   DefaultKeyMap(),
		logger: logger,
		phases: phases.New([]phases.Phase{
			home,
			phases.NewPhase(workflow.PhaseAnalyze, workflow.NewAnalyze(config.Session, homeName)),
			phases.NewPhase(workflow.PhaseResult, workflow.NewResult(config.Session, config.Playback, homeName)),
		}),
		info:         workflow.NewInfo(config.Info, config.Timeout),
		snap:         config.Session.Snapshot(),
		windowWidth:  80,
		windowHeight: 24,
	}
}

// Init returns the initial command.
func (m *model) Init() tea.Cmd {
	return m.phases.Init()
}

// Update handles all messages.
func (m *model) Update(teaMsg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	if m.crashed {
		return m, m.updateCrashed(teaMsg)
	}

	// a panic skips the return below, so both results are set here
	defer func() {
		if r := recover(); r != nil {
			m.crash(r)
			next, cmd = m, nil
		}
	}()

	return m, m.update(teaMsg)
}

func (m *model) update(teaMsg tea.Msg) tea.Cmd {
	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height

	case workflow.SnapshotMsg:
		m.snap = msg.Snapshot

	case workflow.InfoLoadedMsg:
		var cmd tea.Cmd
		m.info, cmd = m.info.Update(msg)
		return cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// everything but keys reaches the tab too, so its spinner keeps ticking
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.showInfo {
		m.info, cmd = m.info.Update(teaMsg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.updatePhases(teaMsg))

	return tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ForceQuit), key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Recheck):
		return m.recheck()

	case m.showInfo:
		if key.Matches(msg, m.info.CloseKey()) {
			m.showInfo = false
			return nil
		}
		var cmd tea.Cmd
		m.info, cmd = m.info.Update(msg)
		return cmd

	case key.Matches(msg, m.keys.Info):
		m.showInfo = true
		return m.info.Init()
	}

	return m.updatePhases(msg)
}

func (m *model) updatePhases(teaMsg tea.Msg) tea.Cmd {
	updatedPhases, cmd := m.phases.Update(teaMsg)
	m.phases = updatedPhases.(phases.Model) //nolint:forcetypeassert // phases.Model always returns phases.Model

	return cmd
}

func (m *model) quit() tea.Cmd {
	if m.config.Cancel != nil {
		m.config.Cancel()
	}

	return tea.Quit
}

func (m *model) recheck() tea.Cmd {
	if m.config.Recheck == nil {
		return nil
	}
	recheck, timeout := m.config.Recheck, m.config.Timeout

	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		// the new availability arrives as a snapshot
		recheck(ctx)

		return nil
	}
}

// View renders the current UI.
func (m *model) View() (view string) {
	if m.crashed {
		return renderFallback()
	}

	defer func() {
		if r := recover(); r != nil {
			m.crash(r)
			view = renderFallback()
		}
	}()

	var sb strings.Builder
	sb.WriteString(style.Title.Render("drumtone"))
	sb.WriteString(" ")
	sb.WriteString(renderBadge(m.snap.Availability))
	sb.WriteString(" ")
	if m.showInfo {
		sb.WriteString(style.Subtitle.Render("Model info"))
	} else {
		sb.WriteString(style.Subtitle.Render(m.phases.CurrentPhaseName()))
	}
	sb.WriteString("\n\n")

	if m.showInfo {
		sb.WriteString(m.info.View())
	} else {
		sb.WriteString(m.phases.View())
	}

	return sb.String()
}

func (m *model) crash(r any) {
	m.crashed = true
	m.logger.Error("TUI panic recovered", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
}

func (m *model) updateCrashed(teaMsg tea.Msg) tea.Cmd {
	if km, ok := teaMsg.(tea.KeyMsg); ok {
		if key.Matches(km, m.keys.Quit) || key.Matches(km, m.keys.ForceQuit) {
			return m.quit()
		}
	}

	return nil
}

func renderBadge(a prediction.Availability) string {
	switch a.Status {
	case prediction.StatusReady:
		return style.Badge.Inherit(style.Success).Render("● ready")
	case prediction.StatusModelNotLoaded:
		return style.Badge.Inherit(style.Warning).Render("● model not loaded")
	case prediction.StatusOffline:
		badge := style.Badge.Inherit(style.Error).Render("● offline")
		if a.Reason != "" {
			badge += " " + style.Muted.Render(a.Reason)
		}
		return badge
	default:
		return style.Badge.Inherit(style.Muted).Render("○ checking backend")
	}
}

func renderFallback() string {
	var sb strings.Builder
	sb.WriteString(style.Panel.Render(
		style.Error.Render("Something went wrong.") + "\n\n" +
			"drumtone hit an unexpected error and cannot continue.\n" +
			"Details were written to the log."))
	sb.WriteString("\n\n")
	sb.WriteString(style.Help.Render("[") + style.Key.Render("q") + style.Help.Render("] quit"))

	return sb.String()
}
