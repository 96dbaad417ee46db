package workflow

import (
	"os"
	"strings"

	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/dustin/go-humanize"
)

// existingOutputKeyMap defines keys for handling a recording already on disk.
type existingOutputKeyMap struct {
	UseExisting key.Binding
	Redo        key.Binding
}

func defaultExistingOutputKeyMap() existingOutputKeyMap {
	return existingOutputKeyMap{
		UseExisting: key.NewBinding(
			key.WithKeys("enter", "y"),
			key.WithHelp("enter/y", "analyze it"),
		),
		Redo: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "record again"),
		),
	}
}

// existingOutputState tracks whether the recording file already exists.
type existingOutputState struct {
	found bool
	path  string
	size  int64
	keys  existingOutputKeyMap
}

// newExistingOutputState checks whether outputPath exists.
func newExistingOutputState(outputPath string) existingOutputState {
	state := existingOutputState{
		path: outputPath,
		keys: defaultExistingOutputKeyMap(),
	}
	state.refresh()

	return state
}

func (s *existingOutputState) refresh() {
	if s.path == "" {
		return
	}
	if info, err := os.Stat(s.path); err == nil && !info.IsDir() {
		s.found = true
		s.size = info.Size()
	}
}

// renderExistingOutputView renders the prompt shown for a recording on disk.
// canRedo hides the redo key once the microphone has been used up.
func renderExistingOutputView(state existingOutputState, canRedo bool) string {
	var sb strings.Builder

	sb.WriteString(style.Success.Render("✓ Recording already exists"))
	sb.WriteString("\n\n")

	sb.WriteString(style.Label.Render("File: "))
	sb.WriteString(style.Muted.Render(state.path + " (" + humanize.Bytes(uint64(state.size)) + ")"))
	sb.WriteString("\n\n")

	if canRedo {
		sb.WriteString(renderKeyHelp(state.keys.UseExisting, " "))
		sb.WriteString(renderKeyHelp(state.keys.Redo, "\n"))
	} else {
		sb.WriteString(renderKeyHelp(state.keys.UseExisting, "\n"))
	}
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}
