package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings handled on every screen.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Info      key.Binding
	Recheck   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "model info"),
		),
		Recheck: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "check backend again"),
		),
	}
}
