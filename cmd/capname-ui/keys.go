package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run     key.Binding
	DryRun  key.Binding
	List    key.Binding
	Gallery key.Binding
	Up      key.Binding
	Down    key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Run:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select directory & run")),
		DryRun:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "toggle dry run")),
		List:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "toggle file list")),
		Gallery: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "image gallery")),
		Up:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "scroll log")),
		Down:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "scroll log")),
		Dismiss: key.NewBinding(key.WithKeys("enter", "esc"), key.WithHelp("enter", "dismiss")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.DryRun, k.List, k.Gallery, k.Up, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
