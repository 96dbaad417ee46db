// Package phases is a container that shows one tea.Model at a time and moves
// between them on NextPhaseMsg and GotoPhaseMsg.
package phases

import (
	"github.com/alkime/drumtone/pkg/collections"
	tea "github.com/charmbracelet/bubbletea"
)

// NextPhaseMsg signals the phases container to advance to the next phase.
type NextPhaseMsg struct{}

// GotoPhaseMsg jumps to the phase with the given name. Unknown names are ignored.
type GotoPhaseMsg struct {
	Name string
}

// NextPhaseCmd is a tea.Cmd that advances the container.
func NextPhaseCmd() tea.Msg {
	return NextPhaseMsg{}
}

// GotoPhaseCmd returns a tea.Cmd jumping to the named phase.
func GotoPhaseCmd(name string) tea.Cmd {
	return func() tea.Msg {
		return GotoPhaseMsg{Name: name}
	}
}

type Phase struct {
	Name string
	mdl  tea.Model
}

func (p Phase) Init() tea.Cmd {
	return p.mdl.Init()
}

func (p Phase) Update(msg tea.Msg) (Phase, tea.Cmd) {
	updatedMdl, cmd := p.mdl.Update(msg)
	p.mdl = updatedMdl
	return p, cmd
}

func (p Phase) View() string {
	return p.mdl.View()
}

func NewPhase(name string, mdl tea.Model) Phase {
	return Phase{
		Name: name,
		mdl:  mdl,
	}
}

type Model struct {
	phases []Phase
	curr   int
}

func New(phases []Phase) Model {
	return Model{
		phases: phases,
		curr:   0,
	}
}

func (m Model) currentPhase() Phase {
	return m.phases[m.curr]
}

func (m Model) Init() tea.Cmd {
	return m.currentPhase().Init()
}

func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case NextPhaseMsg:
		if m.curr >= len(m.phases)-1 {
			return m, nil
		}
		m.curr++
		initCmd := m.currentPhase().Init()
		return m, initCmd

	case GotoPhaseMsg:
		idx := m.indexOf(msg.Name)
		if idx < 0 {
			return m, nil
		}
		// re-entering the current phase still re-initializes it
		m.curr = idx
		return m, m.currentPhase().Init()
	}

	ph, cmd := m.currentPhase().Update(teaMsg)
	m.phases[m.curr] = ph

	return m, cmd
}

func (m Model) View() string {
	return m.currentPhase().View()
}

// CurrentPhaseName returns the name of the current phase.
func (m Model) CurrentPhaseName() string {
	return m.currentPhase().Name
}

// Names lists the phases in order.
func (m Model) Names() []string {
	return collections.Apply(m.phases, func(p Phase) string { return p.Name })
}

func (m Model) indexOf(name string) int {
	for i, p := range m.phases {
		if p.Name == name {
			return i
		}
	}

	return -1
}
