package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/selector"
	"github.com/alkime/drumtone/internal/submission"
	"github.com/alkime/drumtone/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/dustin/go-humanize"
)

// GlobalKeys are handled by the root model but listed on every screen.
type GlobalKeys struct {
	Info key.Binding
	Quit key.Binding
}

func DefaultGlobalKeys() GlobalKeys {
	return GlobalKeys{
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "model info"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func renderKeyHelp(keyBinding key.Binding, suffix ...string) string {
	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

func renderGlobalKeyHelp() string {
	km := DefaultGlobalKeys()
	s := renderKeyHelp(km.Info, " ")
	s += renderKeyHelp(km.Quit, "\n")
	return s
}

// describeError turns a local refusal into a sentence for the user.
func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, selector.ErrWrongType):
		return "Please choose an audio file (" + strings.Join(clip.Extensions, ", ") + ")."
	case errors.Is(err, submission.ErrPending):
		return "An analysis is already running."
	case errors.Is(err, selector.ErrInputDisabled):
		return "The classifier is unavailable right now."
	case errors.Is(err, submission.ErrNoFile), errors.Is(err, selector.ErrNoCandidate):
		return "Choose a clip first."
	default:
		return err.Error()
	}
}

// describeFile renders "name (1.2 MB)".
func describeFile(f clip.File) string {
	return f.Name() + " " + style.Muted.Render("("+humanize.Bytes(uint64(f.Size()))+")")
}

// formatSeconds renders 83.4 as 1:23.4.
func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	mins := int(s) / 60

	return fmt.Sprintf("%d:%04.1f", mins, s-float64(mins*60))
}
