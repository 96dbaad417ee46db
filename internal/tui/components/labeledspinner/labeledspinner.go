// Package labeledspinner renders a spinner with a title, an optional detail
// line and, for timed waits, the elapsed time.
package labeledspinner

import (
	"strings"

	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is a spinner with a title. Timed models also run a stopwatch.
type Model struct {
	spinner   spinner.Model
	stopwatch stopwatch.Model
	timed     bool

	Title  string
	Detail string
}

// Option configures a Model.
type Option func(*Model)

// WithDetail sets the line shown under the title.
func WithDetail(detail string) Option {
	return func(m *Model) { m.Detail = detail }
}

// Timed shows how long the spinner has been running.
func Timed() Option {
	return func(m *Model) { m.timed = true }
}

// New creates a labeled spinner.
func New(kind spinner.Spinner, title string, opts ...Option) Model {
	m := Model{
		spinner:   spinner.New(spinner.WithSpinner(kind)),
		stopwatch: stopwatch.New(),
		Title:     title,
	}
	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Init starts the spinner and, for timed models, the stopwatch.
func (m Model) Init() tea.Cmd {
	if m.timed {
		return tea.Batch(m.spinner.Tick, m.stopwatch.Init())
	}

	return m.spinner.Tick
}

// Restart returns a copy with the elapsed time cleared. Call Init to run it.
func (m Model) Restart() Model {
	m.stopwatch = stopwatch.New()
	return m
}

// Stop freezes the elapsed time.
func (m Model) Stop() tea.Cmd {
	if !m.timed {
		return nil
	}

	return m.stopwatch.Stop()
}

// SetDetail returns a copy with the detail line replaced.
func (m Model) SetDetail(detail string) Model {
	m.Detail = detail
	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case stopwatch.TickMsg, stopwatch.StartStopMsg, stopwatch.ResetMsg:
		if !m.timed {
			return m, nil
		}
		var cmd tea.Cmd
		m.stopwatch, cmd = m.stopwatch.Update(msg)

		return m, cmd
	}

	return m, nil
}

// View renders the spinner. footer, if any, goes below a blank line.
func (m Model) View(footer ...string) string {
	var sb strings.Builder

	sb.WriteString(m.spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(m.Title))

	if m.Detail != "" {
		sb.WriteString("\n\n")
		sb.WriteString(style.Subtitle.Render(m.Detail))
	}
	if m.timed {
		sb.WriteString("\n\n")
		sb.WriteString(style.Help.Render(m.stopwatch.View() + " elapsed"))
	}
	for _, f := range footer {
		if f == "" {
			continue
		}
		sb.WriteString("\n\n")
		sb.WriteString(f)
	}

	return sb.String()
}
