package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/internal/tui/components/labeledspinner"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// InfoLoadedMsg carries the model info and notes catalog.
type InfoLoadedMsg struct {
	Model prediction.ModelInfo
	Notes prediction.NotesCatalog
	Err   error
}

type infoKeyMap struct {
	Reload key.Binding
	Close  key.Binding
}

// Info is the model information tab. It is not a phase: the root model shows
// it over whatever phase is current.
type Info struct {
	keys    infoKeyMap
	src     InfoSource
	timeout time.Duration
	spinner labeledspinner.Model

	loading bool
	loaded  InfoLoadedMsg
	has     bool
}

// NewInfo creates the info tab. Requests are bounded by timeout.
func NewInfo(src InfoSource, timeout time.Duration) *Info {
	return &Info{
		keys: infoKeyMap{
			Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
			Close:  key.NewBinding(key.WithKeys("esc", "i"), key.WithHelp("i", "back")),
		},
		src:     src,
		timeout: timeout,
		spinner: labeledspinner.New(spinner.MiniDot, "Loading model info..."),
	}
}

// CloseKey is the binding that hides the tab.
func (m *Info) CloseKey() key.Binding {
	return m.keys.Close
}

// Init fetches the info the first time the tab is opened.
func (m *Info) Init() tea.Cmd {
	if m.has || m.loading {
		return nil
	}

	return m.load()
}

func (m *Info) Update(teaMsg tea.Msg) (*Info, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case InfoLoadedMsg:
		m.loading = false
		m.loaded = msg
		m.has = msg.Err == nil

		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Reload) && !m.loading {
			return m, m.load()
		}

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(teaMsg)

	return m, cmd
}

func (m *Info) View() string {
	if m.loading {
		return m.spinner.View()
	}

	var sb strings.Builder
	if m.loaded.Err != nil {
		sb.WriteString(style.Panel.Render(style.Error.Render("Could not load model info") + "\n\n" + m.loaded.Err.Error()))
	} else {
		sb.WriteString(style.Card.Render(renderModelInfo(m.loaded.Model)))
		sb.WriteString("\n\n")
		sb.WriteString(renderNotes(m.loaded.Notes))
	}

	sb.WriteString("\n\n")
	sb.WriteString(renderKeyHelp(m.keys.Reload, " "))
	sb.WriteString(renderKeyHelp(m.keys.Close, "\n"))

	return sb.String()
}

func (m *Info) load() tea.Cmd {
	m.loading = true
	src, timeout := m.src, m.timeout

	return tea.Batch(m.spinner.Init(), func() tea.Msg {
		return fetchInfo(src, timeout)
	})
}

// fetchInfo requests both endpoints concurrently.
func fetchInfo(src InfoSource, timeout time.Duration) InfoLoadedMsg {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var out InfoLoadedMsg
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := src.ModelInfo(ctx)
		if err != nil {
			return fmt.Errorf("model info: %w", err)
		}
		out.Model = info

		return nil
	})
	g.Go(func() error {
		notes, err := src.Notes(ctx)
		if err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		out.Notes = notes

		return nil
	})
	out.Err = g.Wait()

	return out
}

func renderModelInfo(info prediction.ModelInfo) string {
	var sb strings.Builder
	sb.WriteString(style.Title.Render("Model"))
	sb.WriteString("\n\n")

	rows := [][2]string{
		{"Architecture", info.Architecture},
		{"Classes", strings.Join(info.Classes, ", ")},
		{"Accuracy", info.Accuracy},
		{"Sample rate", fmt.Sprintf("%d Hz", info.SampleRate)},
	}
	for _, row := range rows {
		sb.WriteString(style.Label.Render(fmt.Sprintf("%-14s", row[0]+":")))
		sb.WriteString(row[1])
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// renderNotes lists the catalog in scale order.
func renderNotes(notes prediction.NotesCatalog) string {
	var sb strings.Builder
	sb.WriteString(style.Title.Render(fmt.Sprintf("Notes (%d)", notes.Count)))
	sb.WriteString("\n")

	for _, c := range prediction.Categories() {
		info, ok := notes.CulturalInfo[string(c)]
		if !ok {
			continue
		}
		sb.WriteString(style.Bullet.Render("• "))
		sb.WriteString(style.Label.Render(fmt.Sprintf("%-3s", c)))
		sb.WriteString(" ")
		sb.WriteString(info.Pitch)
		if info.Frequency != "" {
			sb.WriteString(style.Muted.Render(" " + info.Frequency))
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
