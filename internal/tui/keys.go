package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/schaermu/savesyncd/internal/reconcile"
)

// KeyMap defines the key bindings of the save list.
type KeyMap struct {
	Delete    key.Binding // Arm a delete; the next letter picks the save.
	Select    key.Binding // Any lowercase letter while a delete is armed.
	Cancel    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding // Works in every mode.
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete a save"),
	),
	Select: key.NewBinding(
		key.WithKeys(letterKeys()...),
		key.WithHelp("a-z", "pick save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

func letterKeys() []string {
	keys := make([]string, 0, 26)
	for r := 'a'; r <= 'z'; r++ {
		keys = append(keys, string(r))
	}
	return keys
}

// modeKeys adapts the key map to help.KeyMap for one delete mode, so the
// help line only lists keys that do something right now.
type modeKeys struct {
	keys    KeyMap
	pending reconcile.DeletePending
}

func (m modeKeys) ShortHelp() []key.Binding {
	switch m.pending.(type) {
	case reconcile.AwaitingIndex:
		return []key.Binding{m.keys.Select, m.keys.Cancel, m.keys.ForceQuit}
	case reconcile.Delete:
		return []key.Binding{m.keys.Cancel, m.keys.Quit}
	default:
		return []key.Binding{m.keys.Delete, m.keys.Quit}
	}
}

func (m modeKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp()}
}
