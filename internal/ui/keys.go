package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	TogglePane key.Binding

	// Sync controls
	Reconcile   key.Binding
	Connect     key.Binding
	Disconnect  key.Binding
	Acknowledge key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// defaultKeyMap returns the default key bindings.
func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "theme"),
		),
		TogglePane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "files/events"),
		),
		Reconcile: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refetch"),
		),
		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Acknowledge: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "ack error"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reconcile, k.Connect, k.Disconnect, k.TogglePane, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Reconcile, k.Connect, k.Disconnect, k.Acknowledge},
		{k.TogglePane, k.CycleTheme, k.Help, k.Quit},
	}
}
